package setting

import "github.com/goldsave/goldsave-api/internal/pkg/apperr"

var (
	ErrSettingNotFound = apperr.NotFound("SETTING_NOT_FOUND", "setting not found")
)
