package util

import (
	"strconv"
)

// ParseID 解析路径中的数字ID，非法时返回 ValidationError
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, NewValidation("invalid id: " + s)
	}
	return uint(id), nil
}
