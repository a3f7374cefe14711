package game

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	telnetIAC  byte = 255
	telnetDONT byte = 254
	telnetDO   byte = 253
	telnetWONT byte = 252
	telnetWILL byte = 251
	telnetSB   byte = 250
	telnetSE   byte = 240
	telnetNOP  byte = 241
	telnetDM   byte = 242
	telnetBRK  byte = 243
	telnetIP   byte = 244
	telnetAO   byte = 245
	telnetAYT  byte = 246
	telnetEC   byte = 247
	telnetEL   byte = 248
	telnetGA   byte = 249
)

const (
	telnetOptEcho         byte = 1
	telnetOptSuppressGA   byte = 3
	telnetOptTerminalType byte = 24
	telnetOptWindowSize   byte = 31
	telnetOptLineMode     byte = 34
	telnetOptCharset      byte = 42
)

const (
	charsetRequest  byte = 1
	charsetAccepted byte = 2
	charsetRejected byte = 3
)

// offeredCharsets is sent to clients that agree to negotiate, most preferred
// first.
var offeredCharsets = []string{"UTF-8", "CP437", "ISO-8859-1", "WINDOWS-1252"}

// charsets maps normalized charset names to their code pages. UTF-8 maps to
// nil since it is sent as is.
var charsets = map[string]*charmap.Charmap{
	"UTF8":        nil,
	"CP437":       charmap.CodePage437,
	"IBM437":      charmap.CodePage437,
	"ISO88591":    charmap.ISO8859_1,
	"LATIN1":      charmap.ISO8859_1,
	"WINDOWS1252": charmap.Windows1252,
	"CP1252":      charmap.Windows1252,
}

var (
	serverSupportedOptions = map[byte]bool{
		telnetOptSuppressGA: true,
		telnetOptCharset:    true,
	}
	clientSupportedOptions = map[byte]bool{
		telnetOptTerminalType: true,
		telnetOptWindowSize:   true,
	}
)

type TelnetSession struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
	width  int
	height int
	term   string
	// cm is the negotiated code page; nil means UTF-8.
	cm *charmap.Charmap
}

func NewTelnetSession(conn net.Conn) *TelnetSession {
	s := &TelnetSession{
		conn:   conn,
		reader: bufio.NewReader(conn),
		width:  80,
		height: 24,
	}
	s.performHandshake()
	return s
}

func (s *TelnetSession) performHandshake() {
	_ = s.writeCommand(telnetWILL, telnetOptSuppressGA)
	_ = s.writeCommand(telnetWONT, telnetOptEcho)
	_ = s.writeCommand(telnetDONT, telnetOptLineMode)
	_ = s.writeCommand(telnetDO, telnetOptTerminalType)
	_ = s.writeCommand(telnetDO, telnetOptWindowSize)
	_ = s.writeCommand(telnetWILL, telnetOptCharset)
}

func (s *TelnetSession) writeCommand(cmd, opt byte) error {
	return s.writeRaw([]byte{telnetIAC, cmd, opt})
}

func (s *TelnetSession) writeRaw(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Write(payload)
	return err
}

func (s *TelnetSession) WriteString(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := []byte(msg)
	if s.cm != nil {
		payload = encodeWithCharmap(s.cm, payload)
	}
	_, err := s.conn.Write(translateForTelnet(payload))
	return err
}

func translateForTelnet(msg []byte) []byte {
	var buf bytes.Buffer
	var prev byte
	for i := 0; i < len(msg); i++ {
		b := msg[i]
		switch b {
		case '\n':
			if prev != '\r' {
				buf.WriteByte('\r')
			}
			buf.WriteByte('\n')
		case telnetIAC:
			buf.WriteByte(telnetIAC)
			buf.WriteByte(telnetIAC)
		default:
			buf.WriteByte(b)
		}
		prev = b
	}
	return buf.Bytes()
}

func (s *TelnetSession) ReadLine() (string, error) {
	var buf bytes.Buffer
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\r':
			if next, err := s.reader.Peek(1); err == nil && next[0] == '\n' {
				_, _ = s.reader.ReadByte()
			}
			return s.decode(buf.Bytes()), nil
		case '\n':
			return s.decode(buf.Bytes()), nil
		case 0x08, 0x7f:
			bs := buf.Bytes()
			if len(bs) > 0 {
				buf.Truncate(len(bs) - 1)
			}
		case 0x00:
			// ignore NULs
		case telnetIAC:
			if err := s.handleIAC(&buf); err != nil {
				return "", err
			}
		default:
			buf.WriteByte(b)
		}
	}
}

func (s *TelnetSession) handleIAC(buf *bytes.Buffer) error {
	cmd, err := s.reader.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case telnetIAC:
		buf.WriteByte(telnetIAC)
	case telnetDO, telnetDONT, telnetWILL, telnetWONT:
		opt, err := s.reader.ReadByte()
		if err != nil {
			return err
		}
		s.handleNegotiation(cmd, opt)
	case telnetSB:
		return s.handleSubnegotiation()
	case telnetNOP, telnetDM, telnetBRK, telnetIP, telnetAO, telnetAYT, telnetEC, telnetEL, telnetGA:
		// ignored control commands
	default:
		// ignore anything unknown to keep stream resilient
	}
	return nil
}

func (s *TelnetSession) handleNegotiation(cmd, opt byte) {
	switch cmd {
	case telnetDO:
		if serverSupportedOptions[opt] {
			if opt == telnetOptCharset {
				_ = s.requestCharset()
				return
			}
			_ = s.writeCommand(telnetWILL, opt)
		} else {
			_ = s.writeCommand(telnetWONT, opt)
		}
	case telnetDONT:
		_ = s.writeCommand(telnetWONT, opt)
	case telnetWILL:
		if clientSupportedOptions[opt] {
			_ = s.writeCommand(telnetDO, opt)
		} else {
			_ = s.writeCommand(telnetDONT, opt)
		}
	case telnetWONT:
		_ = s.writeCommand(telnetDONT, opt)
	}
}

func (s *TelnetSession) handleSubnegotiation() error {
	opt, err := s.reader.ReadByte()
	if err != nil {
		return err
	}
	payload := make([]byte, 0, 16)
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return err
		}
		if b == telnetIAC {
			esc, err := s.reader.ReadByte()
			if err != nil {
				return err
			}
			if esc == telnetIAC {
				payload = append(payload, telnetIAC)
				continue
			}
			if esc == telnetSE {
				break
			}
			// unexpected command inside subnegotiation, ignore and continue
			continue
		}
		payload = append(payload, b)
	}

	switch opt {
	case telnetOptTerminalType:
		if len(payload) > 1 && payload[0] == 0 { // IS
			s.term = strings.ToUpper(sanitizeTelnetString(payload[1:]))
		}
	case telnetOptCharset:
		s.handleCharset(payload)
	case telnetOptWindowSize:
		if len(payload) >= 4 {
			s.width = int(payload[0])<<8 | int(payload[1])
			s.height = int(payload[2])<<8 | int(payload[3])
		}
	}
	return nil
}

func (s *TelnetSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *TelnetSession) Size() (int, int) {
	return s.width, s.height
}

func (s *TelnetSession) Terminal() string {
	return s.term
}

// Charset names the negotiated character set.
func (s *TelnetSession) Charset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cm == nil {
		return "UTF-8"
	}
	return s.cm.String()
}

func (s *TelnetSession) requestCharset() error {
	msg := []byte{telnetIAC, telnetSB, telnetOptCharset, charsetRequest}
	msg = append(msg, []byte(";"+strings.Join(offeredCharsets, ";"))...)
	msg = append(msg, telnetIAC, telnetSE)
	return s.writeRaw(msg)
}

func (s *TelnetSession) handleCharset(payload []byte) {
	if len(payload) == 0 {
		return
	}
	switch payload[0] {
	case charsetAccepted:
		s.useCharset(sanitizeTelnetString(payload[1:]))
	case charsetRequest:
		// The client offers its own list; take the first one we know.
		for _, name := range parseCharsetList(string(payload[1:])) {
			if s.useCharset(name) {
				reply := []byte{telnetIAC, telnetSB, telnetOptCharset, charsetAccepted}
				reply = append(reply, []byte(name)...)
				reply = append(reply, telnetIAC, telnetSE)
				_ = s.writeRaw(reply)
				return
			}
		}
		_ = s.writeRaw([]byte{telnetIAC, telnetSB, telnetOptCharset, charsetRejected, telnetIAC, telnetSE})
	}
}

func (s *TelnetSession) useCharset(name string) bool {
	cm, ok := charsets[normalizeToken(name)]
	if !ok {
		return false
	}
	s.mu.Lock()
	s.cm = cm
	s.mu.Unlock()
	return true
}

func (s *TelnetSession) decode(raw []byte) string {
	s.mu.Lock()
	cm := s.cm
	s.mu.Unlock()
	if cm != nil {
		return decodeWithCharmap(cm, raw)
	}
	return string(bytes.ToValidUTF8(raw, []byte("?")))
}

// parseCharsetList splits a CHARSET REQUEST list. The first byte is the
// separator chosen by the sender.
func parseCharsetList(list string) []string {
	if list == "" {
		return nil
	}
	sep := list[:1]
	var out []string
	for _, name := range strings.Split(list[1:], sep) {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// normalizeToken upper-cases a charset name and drops punctuation.
func normalizeToken(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func encodeWithCharmap(cm *charmap.Charmap, text []byte) []byte {
	out := make([]byte, 0, len(text))
	for len(text) > 0 {
		r, size := utf8.DecodeRune(text)
		text = text[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if b, ok := cm.EncodeRune(r); ok {
			out = append(out, b)
		} else {
			out = append(out, '?')
		}
	}
	return out
}

func decodeWithCharmap(cm *charmap.Charmap, raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		b.WriteRune(cm.DecodeByte(c))
	}
	return b.String()
}

// sanitizeTelnetString keeps the printable ASCII of a subnegotiation payload.
func sanitizeTelnetString(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		if c >= 0x20 && c < 0x7f {
			b.WriteByte(c)
		}
	}
	return b.String()
}
