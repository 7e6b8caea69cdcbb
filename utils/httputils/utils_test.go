// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package httputils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/larkkit/lark-sdk-go/utils"
)

func TestErrorToStatus(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{utils.NewUnauthorizedError("bad signature"), http.StatusUnauthorized},
		{utils.NewInvalidError("bad json"), http.StatusBadRequest},
		{utils.NewNotFoundError("x"), http.StatusNotFound},
		{utils.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		t.Run(tc.err.Error(), func(t *testing.T) {
			require.Equal(t, tc.status, ErrorToStatus(tc.err))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteJSON(w, map[string]string{"challenge": "abc"}))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"challenge":"abc"}`, w.Body.String())
}

func TestLimitReadAll(t *testing.T) {
	data, err := LimitReadAll(strings.NewReader("0123456789"), 4)
	require.NoError(t, err)
	require.Equal(t, "0123", string(data))

	data, err = ReadAndClose(io.NopCloser(strings.NewReader("abc")))
	require.NoError(t, err)
	require.Equal(t, "abc", string(data))

	data, err = ReadAndClose(nil)
	require.NoError(t, err)
	require.Empty(t, data)
}
