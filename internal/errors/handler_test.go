package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Proton-105/starter-bot/internal/testutil"
	"github.com/Proton-105/starter-bot/pkg/logger"
)

func TestHandler_Handle(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		wantMessage string
		wantLog     string
	}{
		{name: "nil error", err: nil, wantMessage: ""},
		{name: "validation", err: NewValidationError("bad username"), wantMessage: "Invalid input. bad username", wantLog: "application error"},
		{name: "database", err: NewDatabaseError(errors.New("timeout")), wantMessage: "Temporary problem, please try again later.", wantLog: "application error"},
		{name: "unknown", err: errors.New("boom"), wantMessage: defaultUserMessage, wantLog: "unknown error"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			recorder, log := testutil.NewLogRecorder()
			h := NewHandler(log, false)

			ctx := logger.WithCorrelationID(context.Background(), "corr-42")
			assert.Equal(t, tc.wantMessage, h.Handle(ctx, tc.err))

			if tc.wantLog == "" {
				assert.Empty(t, recorder.Records(""))
				return
			}

			records := recorder.Records(tc.wantLog)
			if assert.Len(t, records, 1) {
				assert.Equal(t, "corr-42", records[0].Attrs["correlation_id"])
			}
		})
	}
}
