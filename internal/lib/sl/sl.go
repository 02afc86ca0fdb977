// Package sl содержит вспомогательные функции для работы с логгером slog:
// создание логгера под окружение и единообразный вывод ошибок.
package sl

import (
	"io"
	"log/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New создаёт логгер для окружения env. Для local и dev это текстовый логгер с уровнем debug,
// для остальных окружений JSON с уровнем info.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal, envDev:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
