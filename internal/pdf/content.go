package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/wudi/pdfkit/ir/semantic"
)

// ContentBytes concatenates the page's content streams the way they are written to the file:
// parsed streams keep their decoded bytes, built streams are serialized from their operations.
func ContentBytes(p *semantic.Page) []byte {
	var buf bytes.Buffer
	for _, cs := range p.Contents {
		if len(cs.RawBytes) > 0 {
			buf.Write(cs.RawBytes)
			continue
		}
		writeOperations(&buf, cs.Operations)
	}
	return buf.Bytes()
}

// PageDigest fingerprints what a page looks like: its box, rotation and content.
func (d *Document) PageDigest(i int) (string, error) {
	p, err := d.Page(i)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	b := p.MediaBox
	fmt.Fprintf(h, "%g %g %g %g %d\n", b.LLX, b.LLY, b.URX, b.URY, NormalizeRotation(p.Rotate))
	h.Write(ContentBytes(p))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeOperations(buf *bytes.Buffer, ops []semantic.Operation) {
	for _, op := range ops {
		for _, o := range op.Operands {
			writeOperand(buf, o)
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
}

func writeOperand(buf *bytes.Buffer, o semantic.Operand) {
	switch v := o.(type) {
	case semantic.NumberOperand:
		buf.WriteString(formatNumber(v.Value))
	case semantic.NameOperand:
		buf.WriteByte('/')
		buf.WriteString(v.Value)
	case semantic.StringOperand:
		writeLiteral(buf, v.Value)
	case semantic.ArrayOperand:
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(buf, it)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
}

// formatNumber never uses exponent notation, which content streams do not allow.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeLiteral(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, ch := range s {
		switch ch {
		case '\\', '(', ')':
			buf.WriteByte('\\')
			buf.WriteByte(ch)
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(buf, "\\%03o", ch)
			} else {
				buf.WriteByte(ch)
			}
		}
	}
	buf.WriteByte(')')
}
