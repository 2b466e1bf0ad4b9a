package dto

// ── 用户模块 DTO ──

// UpdateUserRequest 更新用户资料请求（字段为空指针表示不修改）
type UpdateUserRequest struct {
	Name  *string `json:"name"  binding:"omitempty,min=2,max=100"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// AssignRoleRequest 调整用户角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user_officer instrument_scientist equipment_owner"`
}
