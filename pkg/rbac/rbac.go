package rbac

import "fmt"

// 权限常量
const (
	PermissionReadNotification   = "notification:read"
	PermissionUpdateNotification = "notification:update"
	PermissionDeleteNotification = "notification:delete"
	// 仅供通知生产者（其他内部服务）使用
	PermissionCreateNotification = "notification:create"

	PermissionReadRelationship   = "relationship:read"
	PermissionUpdateRelationship = "relationship:update"
)

// 角色常量
const (
	RoleUser    = "user"
	RoleService = "service"
	RoleAdmin   = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadNotification,
		PermissionUpdateNotification,
		PermissionDeleteNotification,
		PermissionReadRelationship,
		PermissionUpdateRelationship,
	},
	RoleService: {
		PermissionCreateNotification,
		PermissionReadRelationship,
	},
	RoleAdmin: {
		PermissionReadNotification,
		PermissionUpdateNotification,
		PermissionDeleteNotification,
		PermissionCreateNotification,
		PermissionReadRelationship,
		PermissionUpdateRelationship,
	},
}

// NormalizeRole 未声明角色的 token 视为普通用户
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleUser
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[NormalizeRole(role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查用户是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID string, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       NormalizeRole(role),
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     string
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("insufficient permissions: role %q lacks %q", e.Role, e.Permission)
}

// CheckOwnership 验证资源所有者是否为当前调用者
func CheckOwnership(callerID string, ownerID string) error {
	if callerID != ownerID {
		return &OwnershipError{CallerID: callerID, OwnerID: ownerID}
	}
	return nil
}

// OwnershipError 表示调用者不是资源所有者
type OwnershipError struct {
	CallerID string
	OwnerID  string
}

func (e *OwnershipError) Error() string {
	return "resource belongs to another user"
}
