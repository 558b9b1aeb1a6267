package application

import "errors"

// ErrInvalidArgument 请求参数不合法
var ErrInvalidArgument = errors.New("invalid argument")
