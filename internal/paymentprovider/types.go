package paymentprovider

// PrepayRequest — параметры заказа для JSAPI-оплаты.
type PrepayRequest struct {
	OrderNo     string
	Description string
	AmountFen   int64
	OpenID      string
}

// PayParams — параметры для wx.requestPayment на клиенте.
type PayParams struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// Transaction — расшифрованные данные платежа.
type Transaction struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	SuccessTime   string `json:"success_time"`
	Amount        struct {
		Total    int64  `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
}

// TradeStateSuccess — платёж прошёл.
const TradeStateSuccess = "SUCCESS"
