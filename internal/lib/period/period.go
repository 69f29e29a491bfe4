// Package period содержит календарную арифметику: границы суток и месяца
// в часовом поясе сервиса и продление срока членства.
package period

import "time"

// StartOfDay возвращает локальную полночь дня, в который попадает t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// StartOfMonth возвращает начало календарного месяца, в который попадает t.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
}

// Extend продлевает срок на days дней от max(now, current).
// Неистёкший срок наращивается, истёкший или пустой отсчитывается от now.
func Extend(now time.Time, current *time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.AddDate(0, 0, days)
}
