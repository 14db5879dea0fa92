package text

// Truncate 按字符（rune）截断，超出部分以 "..." 结尾。
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// Head 返回前 max 个字符，不追加省略号。
func Head(s string, max int) string {
	if max < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
