package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apierror.Validation("bad amount"), http.StatusBadRequest},
		{apierror.Authentication("bad password"), http.StatusUnauthorized},
		{apierror.Authorization("cashier cannot close"), http.StatusForbidden},
		{apierror.NotFound("no open register"), http.StatusNotFound},
		{apierror.Conflict("already open"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, apierror.StatusOf(tc.err), tc.err.Error())
	}
}

func TestErrorsIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("open register: %w", apierror.Conflict("operator %s already has an open register", "x"))

	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.NotErrorIs(t, err, apierror.ErrNotFound)
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))
	assert.Equal(t, http.StatusConflict, apierror.StatusOf(err))
}
