package router

// Method identifies the database operation a Command performs.
type Method int

const (
	MethodUse Method = iota
	MethodCreate
	MethodUpdate
	MethodPatch
	MethodMerge
	MethodSelect
	MethodDelete
	MethodQuery
	MethodLive
	MethodKill
	MethodSet
	MethodUnset
	MethodHealth
	MethodVersion
	MethodSignin
	MethodSignup
	MethodAuthenticate
	MethodInvalidate
	MethodExport
	MethodImport
	MethodReset
)

var methodNames = [...]string{
	MethodUse:          "use",
	MethodCreate:       "create",
	MethodUpdate:       "update",
	MethodPatch:        "patch",
	MethodMerge:        "merge",
	MethodSelect:       "select",
	MethodDelete:       "delete",
	MethodQuery:        "query",
	MethodLive:         "live",
	MethodKill:         "kill",
	MethodSet:          "set",
	MethodUnset:        "unset",
	MethodHealth:       "health",
	MethodVersion:      "version",
	MethodSignin:       "signin",
	MethodSignup:       "signup",
	MethodAuthenticate: "authenticate",
	MethodInvalidate:   "invalidate",
	MethodExport:       "export",
	MethodImport:       "import",
	MethodReset:        "reset",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "unknown"
	}
	return methodNames[m]
}
