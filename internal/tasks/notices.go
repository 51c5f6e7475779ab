package tasks

import (
	"fmt"
	"strings"
)

// Notice is a user-facing outcome of an operation.
//
// Sent to the CLI or UI layer as a transient notification; never fatal to the view.
type Notice struct {
	Op      Op     // Operation that produced the notice
	Level   Level  // Severity used for styling
	ID      int64  // Task id, zero for list-wide operations
	Message string // Human-readable message for display
	Err     error  // Underlying error for LevelError notices
}

// Op enumerates the operations that report notices.
type Op int

const (
	OpRefresh Op = iota
	OpAdd
	OpStart
	OpStop
	OpEdit
	OpDelete
	OpConvert
	OpBulkDownload
	OpBulkDelete
	OpLog
	OpOpen
	OpPreferences
)

func (o Op) String() string {
	switch o {
	case OpRefresh:
		return "refresh"
	case OpAdd:
		return "add"
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	case OpEdit:
		return "edit"
	case OpDelete:
		return "delete"
	case OpConvert:
		return "convert"
	case OpBulkDownload:
		return "bulk_download"
	case OpBulkDelete:
		return "bulk_delete"
	case OpLog:
		return "log"
	case OpOpen:
		return "open"
	case OpPreferences:
		return "preferences"
	default:
		return ""
	}
}

// Level is the severity of a [Notice].
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func errorNotice(op Op, id int64, err error) Notice {
	return Notice{
		Op:      op,
		Level:   LevelError,
		ID:      id,
		Message: err.Error(),
		Err:     err,
	}
}

func addedNotice(count int) Notice {
	msg := "Task added"
	if count > 1 {
		msg = fmt.Sprintf("%d tasks added", count)
	}
	return Notice{Op: OpAdd, Level: LevelSuccess, Message: msg}
}

func startedNotice(id int64) Notice {
	return Notice{
		Op:      OpStart,
		Level:   LevelSuccess,
		ID:      id,
		Message: "Task added to the download queue",
	}
}

func stoppedNotice(id int64) Notice {
	return Notice{Op: OpStop, Level: LevelInfo, ID: id, Message: "Download paused"}
}

func editedNotice(id int64) Notice {
	return Notice{Op: OpEdit, Level: LevelSuccess, ID: id, Message: "Task updated"}
}

func deletedNotice(id int64) Notice {
	return Notice{Op: OpDelete, Level: LevelSuccess, ID: id, Message: "Task deleted"}
}

func convertedNotice(id int64) Notice {
	return Notice{Op: OpConvert, Level: LevelSuccess, ID: id, Message: "Converted to audio"}
}

func bulkDownloadNotice(ids []int64) Notice {
	return Notice{
		Op:      OpBulkDownload,
		Level:   LevelSuccess,
		Message: fmt.Sprintf("%d tasks added to the download queue", len(ids)),
	}
}

func bulkDeleteNotice(ids []int64) Notice {
	return Notice{
		Op:      OpBulkDelete,
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Deleted %s", pluralTasks(len(ids))),
	}
}

func preferencesNotice(fields []string) Notice {
	return Notice{
		Op:      OpPreferences,
		Level:   LevelInfo,
		Message: "Updated " + strings.Join(fields, ", "),
	}
}

func pluralTasks(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
