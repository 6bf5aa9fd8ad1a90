package couchbase

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	targetScheme = "http"
	targetPort   = "8091"
	targetPath   = "/pools"
)

// ConnectionTarget 集群中一个节点的连接地址，形如 http://<node>:8091/pools
type ConnectionTarget struct {
	raw string
	u   *url.URL
}

// ParseTarget 将单个节点 token 转换为 ConnectionTarget，token 不做 trim。
//
// url.Parse 放行的 '"'、'<'、'>' 等字符同样视为非法，错误的 Cause 始终是 *url.Error。
func ParseTarget(token string) (ConnectionTarget, error) {
	raw := targetScheme + "://" + token + ":" + targetPort + targetPath
	u, err := url.Parse(raw)
	if err != nil {
		return ConnectionTarget{}, &ConfigBuildError{Token: token, Cause: err}
	}
	if err := checkURIChars(token); err != nil {
		return ConnectionTarget{}, &ConfigBuildError{
			Token: token,
			Cause: &url.Error{Op: "parse", URL: raw, Err: err},
		}
	}
	return ConnectionTarget{raw: raw, u: u}, nil
}

// checkURIChars 按 RFC 3986 检查 token：ASCII 只允许 unreserved、sub-delims、
// pct-encoded 及 ":@/?#[]"；非 ASCII 字符除控制符和空白外均允许。
func checkURIChars(token string) error {
	for i := 0; i < len(token); {
		r, size := utf8.DecodeRuneInString(token[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			return fmt.Errorf("invalid UTF-8 byte %#x in host name", token[i])
		case r == '%':
			if i+2 >= len(token) || !isHex(token[i+1]) || !isHex(token[i+2]) {
				return fmt.Errorf("invalid escape %q in host name", token[i:min(i+3, len(token))])
			}
			i += 3
			continue
		case r < utf8.RuneSelf:
			if !isURIChar(byte(r)) {
				return fmt.Errorf("invalid character %q in host name", r)
			}
		case unicode.IsControl(r) || unicode.IsSpace(r):
			return fmt.Errorf("invalid character %q in host name", r)
		}
		i += size
	}
	return nil
}

func isURIChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~!$&'()*+,;=:@/?#[]", c) >= 0
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// URL 返回底层 URL 的副本
func (t ConnectionTarget) URL() *url.URL {
	if t.u == nil {
		return nil
	}
	u := *t.u
	return &u
}

// Host 返回节点地址（不含端口）
func (t ConnectionTarget) Host() string {
	if t.u == nil {
		return ""
	}
	return t.u.Hostname()
}

// String 返回构造时的原始 URI，非 ASCII 字符不做百分号编码
func (t ConnectionTarget) String() string {
	return t.raw
}

// MarshalText 以 URI 字符串形式输出，便于 JSON/YAML 展示
func (t ConnectionTarget) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ConvertHosts 将逗号分隔的节点列表转换为 ConnectionTarget 序列。
//
// 顺序保持、不去重、token 不做 trim；末尾的空 token 被丢弃，中间的空 token 保留。
// 任一 token 无法构成合法 URI 时返回 *ConfigBuildError，不返回部分结果。
func ConvertHosts(hosts string) ([]ConnectionTarget, error) {
	tokens := splitHosts(hosts)
	targets := make([]ConnectionTarget, 0, len(tokens))
	for _, token := range tokens {
		t, err := ParseTarget(token)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// splitHosts 按 "," 切分，并去掉末尾连续的空 token
func splitHosts(hosts string) []string {
	tokens := strings.Split(hosts, ",")
	n := len(tokens)
	for n > 0 && tokens[n-1] == "" {
		n--
	}
	return tokens[:n]
}
