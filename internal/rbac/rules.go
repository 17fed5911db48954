package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// RolePermissions is the default policy, shared by the backend routes and the
// client's UI gating.
var RolePermissions = map[string][]string{
	RoleStudent: {
		"course:view",
		"quiz:view",
		"quiz:take",
		"exam:submit",
		"exam:upload",
		"result:view-own",
	},
	RoleTeacher: {
		"course:view",
		"quiz:view",
		"quiz:create",
		"quiz:update",
		"quiz:delete_own",
		"question:*",
		"result:view-all",
	},
	RoleAdmin: {
		"*", // everything
	},
}
