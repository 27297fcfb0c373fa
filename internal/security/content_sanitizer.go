package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer は外部APIから取り込んだ文字列をプレーンテキストに正規化する。
// bluemondayのStrictPolicyで全タグを除去し、エンティティを戻したうえで空白を詰める。
// bluemonday.Policyはスレッドセーフなため、1インスタンスを共有してよい。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeText はHTMLタグを取り除いたプレーンテキストを返す。
// 連続する空白は1つにまとめ、前後の空白は除去する。
func (s *TextSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}
