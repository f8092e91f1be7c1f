package httpapi

// Result 移动端/Web 端统一响应格式
// - code: ResultSuccess = 2000
// - type: 'success' | 'error' | 'warning'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultTokenExpired 会话失效：code=60401 + HTTP 401，客户端跳转登录
	ResultTokenExpired = 60401
	// ResultClaimConflict 认领冲突：result 为刷新后的病例（含当前认领人）
	ResultClaimConflict = 40901
	// ResultGateDenied 门控拒绝：message 为可操作提示（如 "claim this case first"）
	ResultGateDenied = 40301
	// ResultStale 后端拒绝：result 为刷新后的病例
	ResultStale = 40902
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailWith 带结果的失败（例如冲突后刷新的病例）
func FailWith[T any](code int, message string, result T) Result[T] {
	return Result[T]{Code: code, Type: "error", Message: message, Result: result}
}
