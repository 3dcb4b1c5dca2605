package email

import "errors"

var ErrUnknownTemplate = errors.New("unknown email template")
