package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"corpsite/internal/platform/middleware"
	"corpsite/internal/retention"
)

// Sweeper runs one retention pass.
type Sweeper interface {
	RunOnce(ctx context.Context) (retention.Report, error)
}

// invokeResponse is the custom handler envelope the function host expects
// from non-HTTP triggers.
type invokeResponse struct {
	Outputs     map[string]any `json:"Outputs"`
	Logs        []string       `json:"Logs"`
	ReturnValue any            `json:"ReturnValue"`
}

// TimerHandler answers the scheduled cleanup trigger. A failed sweep still
// returns 200 so the host records the logs; the failure is in ReturnValue.
func TimerHandler(sweeper Sweeper, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		report, err := sweeper.RunOnce(ctx)

		logs := []string{"Starting scheduled cleanup task"}
		classes := make([]string, 0, len(report.Purged))
		for class := range report.Purged {
			classes = append(classes, string(class))
		}
		sort.Strings(classes)
		for _, class := range classes {
			logs = append(logs, fmt.Sprintf("purged %d %s records", report.Purged[retention.Class(class)], class))
		}

		ret := map[string]any{"status": "completed", "purged": report.Total()}
		if err != nil {
			logger.ErrorContext(ctx, "scheduled cleanup failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err,
			)
			logs = append(logs, "cleanup finished with errors")
			ret["status"] = "failed"
		} else {
			logs = append(logs, "Cleanup task completed successfully")
		}

		writeJSON(w, http.StatusOK, invokeResponse{
			Outputs:     map[string]any{},
			Logs:        logs,
			ReturnValue: ret,
		})
	}
}
