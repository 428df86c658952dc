package validation

import (
	"fmt"
	"strings"
)

// MaxSegmentLen ограничивает длину одного сегмента пути документа
const MaxSegmentLen = 256

// ValidateSegment проверяет сегмент пути документа или коллекции
// Сегмент не может быть пустым, содержать "/" или быть "." / ".."
func ValidateSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("path segment cannot be empty")
	}
	if len(segment) > MaxSegmentLen {
		return fmt.Errorf("path segment must not exceed %d characters", MaxSegmentLen)
	}
	if strings.Contains(segment, "/") {
		return fmt.Errorf("path segment %q cannot contain '/'", segment)
	}
	if segment == "." || segment == ".." {
		return fmt.Errorf("path segment %q is reserved", segment)
	}
	return nil
}

// ValidateKey проверяет ключ записи локального кеша
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key cannot be empty")
	}
	return nil
}
