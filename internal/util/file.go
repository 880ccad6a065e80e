package util

import (
	"fmt"
	"time"
)

// Example output for "ex.png": "21313123123_ex.png"
func AddUniquePrefixToFileName(fileName string) string {
	uniquePrefix := fmt.Sprintf("%d", time.Now().UnixNano())
	return fmt.Sprintf("%s_%s", uniquePrefix, fileName)
}
