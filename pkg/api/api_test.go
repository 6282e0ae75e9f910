package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/absmach/fedasync/pkg/api"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc   string
		err    error
		status int
	}{
		{desc: "validation", err: errors.Join(apiutil.ErrValidation, apiutil.ErrMissingID), status: http.StatusBadRequest},
		{desc: "invalid data", err: fmt.Errorf("%w: empty delta", pkgerrors.ErrInvalidData), status: http.StatusBadRequest},
		{desc: "not found", err: pkgerrors.ErrNotFound, status: http.StatusNotFound},
		{desc: "shape mismatch", err: fmt.Errorf("%w: layer 2", pkgerrors.ErrShapeMismatch), status: http.StatusUnprocessableEntity},
		{desc: "invalid factor", err: pkgerrors.ErrInvalidFactor, status: http.StatusUnprocessableEntity},
		{desc: "stale version", err: pkgerrors.ErrStaleVersion, status: http.StatusUnprocessableEntity},
		{desc: "no snapshot", err: pkgerrors.ErrNoSnapshot, status: http.StatusConflict},
		{desc: "round in progress", err: pkgerrors.ErrRoundInProgress, status: http.StatusConflict},
		{desc: "round superseded", err: pkgerrors.ErrRoundSuperseded, status: http.StatusConflict},
		{desc: "timeout", err: context.DeadlineExceeded, status: http.StatusGatewayTimeout},
		{desc: "unknown", err: errors.New("engine exploded"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			rec := httptest.NewRecorder()
			api.EncodeError(context.Background(), tc.err, rec)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, api.ContentType, rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}
