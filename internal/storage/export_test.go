package storage

// SetupTestDatabase открывает поднятие тестовой базы для внешних тестов пакета.
var SetupTestDatabase = setupTestDatabase
