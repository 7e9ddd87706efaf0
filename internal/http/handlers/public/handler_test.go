package public

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
	"github.com/dujiao-next/redemption/internal/repository"
	"github.com/dujiao-next/redemption/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupPublicHandlerTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
			UniqueReferee:   true,
			Rewards:         config.DefaultReferralRewards(),
		},
	}
	container, err := provider.NewContainerWithDB(cfg, db, nil)
	require.NoError(t, err)

	h := New(container)
	r := gin.New()
	// 测试中以 X-Test-User 头模拟鉴权中间件写入的身份
	r.Use(func(c *gin.Context) {
		var uid uint
		if _, err := fmt.Sscan(c.GetHeader("X-Test-User"), &uid); err == nil && uid > 0 {
			c.Set("user_id", uid)
		}
		c.Next()
	})
	r.POST("/redemptions/preview", h.PreviewRedemption)
	r.POST("/redemptions", h.Redeem)
	r.GET("/me/redemptions", h.ListMyRedemptions)
	r.GET("/me/referral-code", h.GetMyReferralCode)
	r.POST("/me/referral-code", h.MintReferralCode)
	r.GET("/me/rewards", h.ListMyRewards)
	r.GET("/me/rewards/:id", h.GetMyReward)
	r.POST("/me/rewards/:id/apply", h.ApplyMyReward)
	r.GET("/me/wallet", h.GetMyWallet)
	return r, container
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, userID uint, body string) envelope {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Locale", constants.LocaleEnUS)
	if userID > 0 {
		req.Header.Set("X-Test-User", fmt.Sprint(userID))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func createDiscountCode(t *testing.T, c *provider.Container, code string, perUser *int) *models.Code {
	t.Helper()
	created, err := c.CodeAdminService.Create(context.Background(), service.CreateCodeInput{
		Code:              code,
		Kind:              constants.CodeKindDiscount,
		PerUserUsageLimit: perUser,
	})
	require.NoError(t, err)
	return created
}

func TestRedeemDiscountCodeAndPerUserDenial(t *testing.T) {
	r, c := setupPublicHandlerTest(t)
	createDiscountCode(t, c, "SAVE10", models.IntPtr(1))

	resp := doJSON(t, r, http.MethodPost, "/redemptions", 5, `{"code":"SAVE10","amount":"99.50"}`)
	require.Equal(t, 0, resp.StatusCode)
	var result service.RedemptionResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.True(t, result.Success)
	require.NotZero(t, result.RecordID)

	resp = doJSON(t, r, http.MethodPost, "/redemptions", 5, `{"code":"SAVE10"}`)
	require.Equal(t, 0, resp.StatusCode)
	var denied map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &denied))
	require.Equal(t, false, denied["success"])
	require.Equal(t, string(constants.DenialPerUserLimitReached), denied["reason"])
	require.NotEmpty(t, denied["message"])

	// 游客不受个人上限约束
	resp = doJSON(t, r, http.MethodPost, "/redemptions", 0, `{"code":"SAVE10"}`)
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.True(t, result.Success)

	resp = doJSON(t, r, http.MethodGet, "/me/redemptions", 5, "")
	require.Equal(t, 0, resp.StatusCode)
	var records []models.RedemptionRecord
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 1)
}

func TestRedeemRejectsMalformedRequests(t *testing.T) {
	r, _ := setupPublicHandlerTest(t)

	resp := doJSON(t, r, http.MethodPost, "/redemptions", 0, `{"amount":"1"}`)
	require.Equal(t, 400, resp.StatusCode)

	resp = doJSON(t, r, http.MethodPost, "/redemptions", 0, `{"code":"SAVE10","amount":"-1"}`)
	require.Equal(t, 400, resp.StatusCode)
}

func TestPreviewUnknownCode(t *testing.T) {
	r, _ := setupPublicHandlerTest(t)

	resp := doJSON(t, r, http.MethodPost, "/redemptions/preview", 0, `{"code":"NOPE"}`)
	require.Equal(t, 0, resp.StatusCode)
	var view PreviewView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.False(t, view.Allowed)
	require.Equal(t, constants.DenialNotFound, view.Reason)
	require.NotEmpty(t, view.Message)
}

func TestGuestCannotRedeemReferralCode(t *testing.T) {
	r, _ := setupPublicHandlerTest(t)

	resp := doJSON(t, r, http.MethodPost, "/me/referral-code", 1, "")
	require.Equal(t, 0, resp.StatusCode)
	var minted struct {
		Code    models.Code `json:"code"`
		Created bool        `json:"created"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &minted))
	require.True(t, minted.Created)

	resp = doJSON(t, r, http.MethodPost, "/redemptions/preview", 0, fmt.Sprintf(`{"code":%q}`, minted.Code.Code))
	require.Equal(t, 401, resp.StatusCode)

	resp = doJSON(t, r, http.MethodPost, "/redemptions", 0, fmt.Sprintf(`{"code":%q}`, minted.Code.Code))
	require.Equal(t, 401, resp.StatusCode)

	resp = doJSON(t, r, http.MethodPost, "/redemptions/preview", 1, fmt.Sprintf(`{"code":%q}`, minted.Code.Code))
	var preview PreviewView
	require.NoError(t, json.Unmarshal(resp.Data, &preview))
	require.False(t, preview.Allowed)
	require.Equal(t, constants.DenialSelfReferral, preview.Reason)

	resp = doJSON(t, r, http.MethodPost, "/redemptions", 1, fmt.Sprintf(`{"code":%q}`, minted.Code.Code))
	var denied map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &denied))
	require.Equal(t, string(constants.DenialSelfReferral), denied["reason"])
}

func TestReferralRewardFlowThroughHandlers(t *testing.T) {
	r, c := setupPublicHandlerTest(t)

	resp := doJSON(t, r, http.MethodPost, "/me/referral-code", 1, `{"force_new":false}`)
	var minted struct {
		Code    models.Code `json:"code"`
		Created bool        `json:"created"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &minted))

	resp = doJSON(t, r, http.MethodPost, "/me/referral-code", 1, "")
	var again struct {
		Code    models.Code `json:"code"`
		Created bool        `json:"created"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &again))
	require.False(t, again.Created)
	require.Equal(t, minted.Code.Code, again.Code.Code)

	resp = doJSON(t, r, http.MethodPost, "/redemptions", 2, fmt.Sprintf(`{"code":%q}`, minted.Code.Code))
	var result service.RedemptionResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.True(t, result.Success)
	require.NotNil(t, result.Referral)

	_, rewards, err := c.RewardManager.ConfirmReferral(context.Background(), result.Referral.ID)
	require.NoError(t, err)
	var referrerReward *models.ReferralReward
	for i := range rewards {
		if rewards[i].BeneficiaryID == 1 {
			referrerReward = &rewards[i]
		}
	}
	require.NotNil(t, referrerReward)
	require.Equal(t, constants.RewardKindCredit, referrerReward.Kind)

	// 他人的奖励按不存在处理
	resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/me/rewards/%d/apply", referrerReward.ID), 2, `{"order_id":900}`)
	require.Equal(t, 404, resp.StatusCode)

	resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/me/rewards/%d/apply", referrerReward.ID), 1, `{"order_id":900}`)
	require.Equal(t, 0, resp.StatusCode)
	var applied service.RewardResult
	require.NoError(t, json.Unmarshal(resp.Data, &applied))
	require.True(t, applied.Success)
	require.Equal(t, constants.RewardStatusApplied, applied.Reward.Status)

	resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/me/rewards/%d/apply", referrerReward.ID), 1, `{"order_id":901}`)
	var deniedAgain map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &deniedAgain))
	require.Equal(t, string(constants.DenialAlreadyTerminal), deniedAgain["reason"])

	resp = doJSON(t, r, http.MethodGet, "/me/wallet", 1, "")
	var account models.WalletAccount
	require.NoError(t, json.Unmarshal(resp.Data, &account))
	require.Equal(t, "10.00", account.Balance.StringFixed(2))

	resp = doJSON(t, r, http.MethodGet, "/me/rewards?status="+constants.RewardStatusApplied, 1, "")
	var mine []models.ReferralReward
	require.NoError(t, json.Unmarshal(resp.Data, &mine))
	require.Len(t, mine, 1)

	filter := repository.RewardListFilter{BeneficiaryID: 2, Page: 1, PageSize: 20}
	refereeRewards, _, err := c.RewardManager.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, refereeRewards, 1)
}

func TestApplyOverdueRewardReportsExpired(t *testing.T) {
	r, c := setupPublicHandlerTest(t)
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	reward := &models.ReferralReward{
		ReferralID:    1,
		BeneficiaryID: 3,
		Role:          constants.RewardBeneficiaryReferee,
		Kind:          constants.RewardKindCredit,
		Amount:        models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		CurrencyCode:  constants.CurrencyDefault,
		Status:        constants.RewardStatusActive,
		ExpiresAt:     &yesterday,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, c.RewardRepo.Create(reward))

	resp := doJSON(t, r, http.MethodPost, fmt.Sprintf("/me/rewards/%d/apply", reward.ID), 3, `{"order_id":9}`)
	require.Equal(t, 0, resp.StatusCode)
	var denied map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &denied))
	require.Equal(t, false, denied["success"])
	require.Equal(t, string(constants.DenialExpired), denied["reason"])

	stored, err := c.RewardRepo.GetByID(reward.ID)
	require.NoError(t, err)
	require.Equal(t, constants.RewardStatusExpired, stored.Status)
	require.NotNil(t, stored.ExpiredAt)

	resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/me/rewards/%d/apply", reward.ID), 3, `{"order_id":9}`)
	require.NoError(t, json.Unmarshal(resp.Data, &denied))
	require.Equal(t, string(constants.DenialAlreadyTerminal), denied["reason"])
}
