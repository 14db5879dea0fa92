package jsonutil

import "strings"

const codeFence = "```"

// ExtractJSON 从模型回复中取出第一个完整的 JSON 值。
// 优先取 ``` 代码块内的内容，其次取正文里第一个配对完整的对象或数组。
func ExtractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := fencedBlock(raw); ok {
		if out, ok := firstValue(block); ok {
			return out, true
		}
	}
	return firstValue(raw)
}

func fencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", false
	}
	block := strings.TrimLeft(rest[:end], "\r\n")
	// 去掉 ```json 这样的语言标记行
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
		}
	}
	block = strings.TrimSpace(block)
	return block, block != ""
}

// firstValue 取最先出现的 '{' 或 '['，按括号深度找到它的闭合位置。
func firstValue(raw string) (string, bool) {
	obj := strings.IndexByte(raw, '{')
	arr := strings.IndexByte(raw, '[')
	switch {
	case obj == -1 && arr == -1:
		return "", false
	case arr == -1 || (obj != -1 && obj < arr):
		return balanced(raw, obj, '{', '}')
	default:
		return balanced(raw, arr, '[', ']')
	}
}

func balanced(raw string, start int, open, close byte) (string, bool) {
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}
