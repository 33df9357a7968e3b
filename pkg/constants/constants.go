package constants

import (
	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	AppKey      contextKey = "app"
	TxKey       contextKey = "tx"
	CommitKey   contextKey = "commitHooks"
	PoolKey     contextKey = "pool"
	LoggerKey   contextKey = "logger"
	TenantIDKey contextKey = "tenantID"
	RequestID   contextKey = "requestID"
	ParamsKey   contextKey = "params"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
