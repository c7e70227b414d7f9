package logging

import "log/slog"

// Domain identifiers

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func Room(id string) slog.Attr {
	return slog.String("room_id", id)
}

func Connection(id string) slog.Attr {
	return slog.String("connection_id", id)
}

func Notification(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
