package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"planboard/internal/repository"
	"planboard/internal/schedule"
	"planboard/internal/service"
)

func TestRespondErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "out of milestone bounds",
			err: &schedule.OutOfMilestoneBoundsError{
				TaskID: 7,
				Start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				End:    time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			},
			want: http.StatusConflict,
		},
		{
			name: "invalid connection",
			err:  &schedule.InvalidConnectionError{Message: "source ends after target starts"},
			want: http.StatusBadRequest,
		},
		{
			name: "blocked status transition",
			err:  &schedule.StatusTransitionBlockedError{Message: "predecessor not done"},
			want: http.StatusConflict,
		},
		{
			name: "invalid date range",
			err:  schedule.ErrInvalidDateRange,
			want: http.StatusBadRequest,
		},
		{
			name: "task has connections",
			err:  service.ErrTaskHasConnections,
			want: http.StatusConflict,
		},
		{
			name: "proposal already decided",
			err:  service.ErrProposalDecided,
			want: http.StatusConflict,
		},
		{
			name: "not found",
			err:  repository.ErrNotFound,
			want: http.StatusNotFound,
		},
		{
			name: "unknown error",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tc.err)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}
