package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/configaction"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"reseller not found", resellerdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"config not found", configdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"billing not found", billingdomain.ErrResellerNotFound, http.StatusNotFound, "not_found"},
		{"invalid amount", resellerdomain.ErrInvalidAmount, http.StatusBadRequest, "invalid_request"},
		{"invalid id", configdomain.ErrInvalidID, http.StatusBadRequest, "invalid_request"},
		{"settlement in progress", configaction.ErrSettlementInProgress, http.StatusConflict, "conflict"},
		{"gorm duplicate key", gorm.ErrDuplicatedKey, http.StatusConflict, "conflict"},
		{"sqlite duplicate key", fmt.Errorf("insert: UNIQUE constraint failed: panels.id"), http.StatusConflict, "conflict"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
		})
	}
}
