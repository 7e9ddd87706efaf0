package router

import (
	"errors"
	"strings"

	"github.com/dujiao-next/redemption/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 上下文键
const (
	userIDContextKey  = "user_id"
	adminIDContextKey = "admin_id"
	usernameKey       = "username"
)

var (
	errAuthHeaderMissing = errors.New("authorization header missing")
	errAuthHeaderInvalid = errors.New("authorization header invalid")
	errTokenInvalid      = errors.New("token invalid")
)

// UserClaims 用户令牌声明，由身份服务签发
type UserClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// AdminClaims 管理员令牌声明
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", errAuthHeaderMissing
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", errAuthHeaderInvalid
	}
	return strings.TrimSpace(parts[1]), nil
}

func parseClaims(cfg config.JWTConfig, tokenString string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.SecretKey), nil
	})
	if err != nil {
		return errors.Join(errTokenInvalid, err)
	}
	if !token.Valid {
		return errTokenInvalid
	}
	return nil
}

// parseUserToken 校验并解析用户令牌
func parseUserToken(cfg config.JWTConfig, tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}
	if err := parseClaims(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, errTokenInvalid
	}
	return claims, nil
}

// parseAdminToken 校验并解析管理员令牌
func parseAdminToken(cfg config.JWTConfig, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := parseClaims(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, errTokenInvalid
	}
	return claims, nil
}

func authErrorKey(err error) string {
	switch {
	case errors.Is(err, errAuthHeaderMissing):
		return "error.auth_header_missing"
	case errors.Is(err, errAuthHeaderInvalid):
		return "error.auth_header_invalid"
	default:
		return "error.token_invalid"
	}
}
