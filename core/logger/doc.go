// Package logger provides slog construction and attribute helpers shared by
// the bus components and the command line tools.
//
//	log := logger.New(
//		logger.WithProduction("msgsub"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("subscriber ready",
//		logger.Endpoint("tcp://*:5555"),
//		logger.Topics([]string{"sensor "}),
//	)
//
// Attribute helpers return an empty slog.Attr for nil or empty inputs where
// that makes sense, so callers never need nil checks:
//
//	log.Error("publish failed", logger.Error(err), logger.SequenceNo(seq))
//
// Components that receive no logger fall back to Discard.
package logger
