package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dujiao-next/redemption/internal/config"
	"github.com/dujiao-next/redemption/internal/constants"
	"github.com/dujiao-next/redemption/internal/models"
	"github.com/dujiao-next/redemption/internal/provider"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

func setupAdminHandlerTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:admin_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.MigrateDB(db))

	cfg := &config.Config{
		Referral: config.ReferralConfig{
			CodeLength:      8,
			MaxMintAttempts: 8,
			Rewards:         config.DefaultReferralRewards(),
		},
		Authz: config.AuthzConfig{SuperAdminIDs: []uint{1}},
	}
	container, err := provider.NewContainerWithDB(cfg, db, nil)
	require.NoError(t, err)

	h := New(container)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("admin_id", uint(1))
		c.Set("username", "root")
		c.Next()
	})
	r.GET("/codes", h.ListCodes)
	r.POST("/codes", h.CreateCode)
	r.PUT("/codes/:id", h.UpdateCode)
	r.PATCH("/codes/:id/active", h.SetCodeActive)
	r.DELETE("/codes/:id", h.DeleteCode)
	r.GET("/codes/:id/redemptions", h.ListCodeRedemptions)
	r.POST("/redemptions/:id/cancel", h.CancelRedemption)
	r.POST("/redemptions/:id/order", h.AttachRedemptionOrder)
	r.POST("/rewards/sweep", h.SweepRewards)
	r.GET("/authz/me", h.GetAuthzMe)
	return r, container
}

func call(t *testing.T, r *gin.Engine, method, path, body string) envelope {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestAdminCodeLifecycle(t *testing.T) {
	r, _ := setupAdminHandlerTest(t)

	resp := call(t, r, http.MethodPost, "/codes", `{"code":"WELCOME","kind":"discount","global_usage_limit":2,"valid_until":"2099-01-01T00:00:00Z"}`)
	require.Equal(t, 0, resp.StatusCode)
	var code models.Code
	require.NoError(t, json.Unmarshal(resp.Data, &code))
	require.True(t, code.IsActive)
	require.Equal(t, constants.CodeStatusActive, code.Status)

	resp = call(t, r, http.MethodPost, "/codes", `{"code":"WELCOME","kind":"discount"}`)
	require.Equal(t, 409, resp.StatusCode)

	resp = call(t, r, http.MethodPost, "/codes", `{"code":"BAD WINDOW","kind":"discount"}`)
	require.Equal(t, 400, resp.StatusCode)

	resp = call(t, r, http.MethodPost, "/codes", `{"code":"WHEN","kind":"discount","valid_from":"yesterday"}`)
	require.Equal(t, 400, resp.StatusCode)

	resp = call(t, r, http.MethodPatch, fmt.Sprintf("/codes/%d/active", code.ID), `{"is_active":false}`)
	require.Equal(t, 0, resp.StatusCode)
	require.NoError(t, json.Unmarshal(resp.Data, &code))
	require.Equal(t, constants.CodeStatusPaused, code.Status)

	resp = call(t, r, http.MethodGet, "/codes?is_active=false", "")
	var codes []models.Code
	require.NoError(t, json.Unmarshal(resp.Data, &codes))
	require.Len(t, codes, 1)

	resp = call(t, r, http.MethodDelete, fmt.Sprintf("/codes/%d", code.ID), "")
	require.Equal(t, 0, resp.StatusCode)

	resp = call(t, r, http.MethodPut, fmt.Sprintf("/codes/%d", code.ID), `{"name":"gone"}`)
	require.Equal(t, 404, resp.StatusCode)

	resp = call(t, r, http.MethodGet, "/codes/abc/redemptions", "")
	require.Equal(t, 400, resp.StatusCode)
}

func TestAdminCancelRedemptionAndAttachOrder(t *testing.T) {
	r, c := setupAdminHandlerTest(t)
	ctx := context.Background()
	code, err := c.CodeAdminService.Create(ctx, service.CreateCodeInput{Code: "ONCE", Kind: constants.CodeKindDiscount, GlobalUsageLimit: models.IntPtr(1)})
	require.NoError(t, err)
	result, err := c.RedemptionCoordinator.Redeem(ctx, service.RedeemInput{Code: "ONCE", RedeemerID: models.UintPtr(8)})
	require.NoError(t, err)
	require.True(t, result.Success)

	resp := call(t, r, http.MethodPost, fmt.Sprintf("/redemptions/%d/order", result.RecordID), `{"order_id":77}`)
	require.Equal(t, 0, resp.StatusCode)
	resp = call(t, r, http.MethodPost, fmt.Sprintf("/redemptions/%d/order", result.RecordID), `{"order_id":78}`)
	require.Equal(t, 409, resp.StatusCode)

	resp = call(t, r, http.MethodPost, fmt.Sprintf("/redemptions/%d/cancel", result.RecordID), `{"reason":"order closed"}`)
	require.Equal(t, 0, resp.StatusCode)
	var record models.RedemptionRecord
	require.NoError(t, json.Unmarshal(resp.Data, &record))
	require.Equal(t, constants.RedemptionStatusCancelled, record.Status)
	require.Equal(t, "order closed", record.CancelReason)

	resp = call(t, r, http.MethodPost, fmt.Sprintf("/redemptions/%d/cancel", result.RecordID), "")
	require.Equal(t, 409, resp.StatusCode)

	reloaded, err := c.CodeAdminService.Get(code.ID)
	require.NoError(t, err)
	require.Equal(t, 0, reloaded.GlobalUsageCount)

	resp = call(t, r, http.MethodGet, fmt.Sprintf("/codes/%d/redemptions", code.ID), "")
	var records []models.RedemptionRecord
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 1)
}

func TestAdminSweepAndAuthzMe(t *testing.T) {
	r, _ := setupAdminHandlerTest(t)

	resp := call(t, r, http.MethodPost, "/rewards/sweep", "")
	require.Equal(t, 0, resp.StatusCode)
	require.JSONEq(t, `{"expired":0}`, string(resp.Data))

	resp = call(t, r, http.MethodGet, "/authz/me", "")
	require.Equal(t, 0, resp.StatusCode)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	require.Equal(t, true, me["is_super"])
	require.Equal(t, "root", me["username"])
}
