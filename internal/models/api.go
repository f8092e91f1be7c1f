package models

// Envelope 后端统一响应格式，必须先检查 Success 再使用 Data
type Envelope[T any] struct {
	Success   bool     `json:"success"`
	Data      T        `json:"data"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Paginated 分页列表
type Paginated[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// UserRole 用户角色
type UserRole string

const (
	RoleAdmin      UserRole = "Admin"
	RoleSuperAdmin UserRole = "SuperAdmin"
	RolePMV        UserRole = "PMV"
	RoleDoctor     UserRole = "Doctor"
)

// User 用户资料
type User struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	FirstName       string   `json:"firstName,omitempty"`
	LastName        string   `json:"lastName,omitempty"`
	FullName        string   `json:"fullName"`
	PhoneNumber     string   `json:"phoneNumber,omitempty"`
	Role            UserRole `json:"role"`
	IsActive        bool     `json:"isActive"`
	IsEmailVerified bool     `json:"isEmailVerified"`
	Specialization  string   `json:"specialization,omitempty"`
	LicenseNumber   string   `json:"licenseNumber,omitempty"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"deviceFingerprint,omitempty"`
}

// LoginResponse 登录/刷新响应
type LoginResponse struct {
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	FullName     string   `json:"fullName"`
	Role         UserRole `json:"role"`
	IDToken      string   `json:"idToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresIn    int      `json:"expiresIn"` // 秒
	SessionID    string   `json:"sessionId"`
}
