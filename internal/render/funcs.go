package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// TemplateFuncs returns a map of template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower":       strings.ToLower,
		"upper":       strings.ToUpper,
		"join":        strings.Join,
		"add":         add,
		"len":         length,
		"isBool":      isBool,
		"configValue": configValue,
		"enabledText": enabledText,
		"alertClass":  alertClass,
		"hasApps":     hasApps,
		// asset is replaced by the server with the hashed asset resolver
		"asset": func(path string) string { return path },
	}
}

// add sums two integers
func add(a, b int) int {
	return a + b
}

// length returns the length of a slice, array, map, or string
func length(v interface{}) int {
	switch val := v.(type) {
	case []interface{}:
		return len(val)
	case []string:
		return len(val)
	case []api.Tenant:
		return len(val)
	case []api.App:
		return len(val)
	case []api.Administrator:
		return len(val)
	case string:
		return len(val)
	case map[string]interface{}:
		return len(val)
	case api.Config:
		return len(val)
	default:
		return 0
	}
}

// isBool reports whether a configuration value is a boolean option
func isBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

// configValue formats a configuration value for a text input
func configValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// enabledText returns a human-readable app status
func enabledText(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

// alertClass returns the bootstrap alert class of a notification type
func alertClass(typ notify.Type) string {
	switch typ {
	case notify.Success:
		return "alert-success"
	case notify.Error:
		return "alert-danger"
	default:
		return "alert-info"
	}
}

// hasApps reports whether the apps of a tenant were fetched
func hasApps(tenant api.Tenant) bool {
	return tenant.Apps != nil
}
