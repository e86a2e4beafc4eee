package extract

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// plainText decodes permissively: a UTF-16 BOM switches the decoder,
// a UTF-8 BOM is dropped and invalid sequences become U+FFFD.
func (x *Extractor) plainText(content []byte) Result {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, content)
	var s string
	if err != nil {
		x.logger.Debug("extract.text.decode_fallback", "error", err)
		s = strings.ToValidUTF8(string(content), "\uFFFD")
	} else {
		s = string(out)
	}
	res := Text(strings.TrimSpace(s))
	res.Method = "plain-text"
	return res
}
