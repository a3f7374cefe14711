package game

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dispatcher executes a command for the connected player.
// Returning true indicates the connection should terminate.
type Dispatcher func(*World, *Player, string) bool

// ServerConfig controls the telnet listener.
type ServerConfig struct {
	Addr     string
	TLS      bool
	CertFile string
	KeyFile  string
}

var (
	netListenFunc         = net.Listen
	tlsListenFunc         = tls.Listen
	ensureCertificateFunc = ensureCertificate
)

const (
	postLoginAtmosphere = "The blocks settle into place around you."
	postLoginPrompt     = "Type 'help' to list commands or 'where' to find your bearings."
	logoffAtmosphere    = "The world falls quiet as you step away."
)

func ensureCertificate(certFile, keyFile, addr string) (tls.Certificate, bool, error) {
	if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
		return cert, false, nil
	}

	if err := generateSelfSignedCert(certFile, keyFile, addr); err != nil {
		return tls.Certificate{}, false, err
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, false, err
	}
	return cert, true, nil
}

func generateSelfSignedCert(certFile, keyFile, addr string) error {
	if dir := filepath.Dir(certFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if dir := filepath.Dir(keyFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject: pkix.Name{
			CommonName:   "CommandBook",
			Organization: []string{"CommandBook"},
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		tmpl.DNSNames = append(tmpl.DNSNames, "localhost")
		tmpl.IPAddresses = append(tmpl.IPAddresses, net.ParseIP("127.0.0.1"), net.ParseIP("::1"))
	} else if ip := net.ParseIP(host); ip != nil {
		tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
	} else {
		tmpl.DNSNames = append(tmpl.DNSNames, host)
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return err
	}

	certOut, err := os.OpenFile(certFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: derBytes}); err != nil {
		_ = certOut.Close()
		return err
	}
	if err := certOut.Close(); err != nil {
		return err
	}

	keyOut, err := os.OpenFile(keyFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}); err != nil {
		_ = keyOut.Close()
		return err
	}
	return keyOut.Close()
}

func handleConn(conn net.Conn, world *World, accounts *AccountManager, dispatcher Dispatcher) {
	session := NewTelnetSession(conn)
	defer session.Close()
	username, isAdmin, err := login(session, accounts)
	if err != nil {
		return
	}

	for {
		if _, ok := world.ActivePlayer(username); !ok {
			break
		}

		notice := "\r\n" + Style("Another session for "+HighlightName(username)+" is already active.", AnsiYellow)
		_ = session.WriteString(Ansi(notice))
		_ = session.WriteString(Ansi("\r\nTake over the existing session? (yes/no): "))
		response, err := session.ReadLine()
		if err != nil {
			return
		}
		answer := strings.ToLower(Trim(response))
		switch answer {
		case "y", "yes":
			oldSession, oldOutput, ok := world.PrepareTakeover(username)
			if !ok {
				continue
			}
			takeover := Ansi("\r\n" + Style("Your connection has been claimed from another location.", AnsiYellow) + "\r\n")
			if oldOutput != nil {
				select {
				case oldOutput <- takeover:
				default:
				}
				close(oldOutput)
			}
			if oldSession != nil {
				_ = oldSession.Close()
			}
			_ = session.WriteString(Ansi("\r\n" + Style("Previous connection released.\r\n", AnsiGreen)))
			break
		case "n", "no":
			_ = session.WriteString(Ansi("\r\n" + Style("Maintaining the existing session.\r\n", AnsiYellow)))
			return
		default:
			_ = session.WriteString(Ansi("\r\n" + Style("Please respond with 'yes' or 'no'.", AnsiYellow)))
		}
	}

	profile := accounts.Profile(username)
	p, err := world.addPlayer(username, session, isAdmin, profile)
	if err != nil {
		_ = session.WriteString(Ansi(Style("\r\n"+err.Error()+"\r\n", AnsiYellow)))
		return
	}

	if err := accounts.RecordLogin(username, time.Now().UTC()); err != nil {
		fmt.Printf("failed to record login for %s: %v\n", username, err)
	}

	output := p.Output
	go func() {
		for out := range output {
			_ = session.WriteString(out)
		}
	}()

	p.Output <- Ansi("\r\n" + Style(postLoginAtmosphere, AnsiMagenta, AnsiBold) + "\r\n")
	p.Output <- Ansi("Welcome, " + HighlightName(p.Name) + Style("!\r\n", AnsiMagenta))
	p.Output <- Ansi(Style(postLoginPrompt+"\r\n", AnsiGreen))
	p.Output <- Ansi(Style(fmt.Sprintf("You are in %s at %s.", p.Location.World, p.Location), AnsiDim))
	world.BroadcastToAll(Ansi(fmt.Sprintf("%s joins the game.", HighlightName(p.Name))), p)
	p.Output <- Prompt(p)

	_ = conn.SetReadDeadline(time.Time{})

	for {
		line, err := session.ReadLine()
		if err != nil {
			break
		}
		line = Trim(line)
		if line == "" {
			p.Output <- Prompt(p)
			continue
		}
		if !p.allowCommand(time.Now()) {
			p.Output <- Ansi(Style("\r\nYou are sending commands too quickly. Please wait.", AnsiYellow))
			p.Output <- Prompt(p)
			continue
		}
		if !p.Alive {
			break
		}
		if quit := dispatcher(world, p, line); quit {
			break
		}
		p.Output <- Prompt(p)
	}

	if p.Session != session {
		return
	}

	farewell := "\r\n" + Style(logoffAtmosphere, AnsiMagenta, AnsiBold) + "\r\n"
	p.Output <- Ansi(farewell)
	p.Output <- Ansi("Until next time, " + HighlightName(p.Name) + Style(".\r\n", AnsiMagenta))
	world.PersistPlayer(p)
	world.removePlayer(p.Name)
	world.BroadcastToAll(Ansi(fmt.Sprintf("%s leaves the game.", HighlightName(p.Name))), nil)
}

// ListenAndServe accepts telnet players for world until ctx is done. The
// dispatcher executes their commands and accounts authenticates them.
// When cfg.TLS is set the listener is secured with the configured
// certificate, which is generated self-signed when missing.
func ListenAndServe(ctx context.Context, world *World, accounts *AccountManager, cfg ServerConfig, dispatcher Dispatcher) error {
	if dispatcher == nil {
		return fmt.Errorf("dispatcher must not be nil")
	}
	if world == nil || accounts == nil {
		return fmt.Errorf("world and accounts must not be nil")
	}
	world.AttachAccountManager(accounts)

	var ln net.Listener
	var err error
	if cfg.TLS {
		cert, created, certErr := ensureCertificateFunc(cfg.CertFile, cfg.KeyFile, cfg.Addr)
		if certErr != nil {
			return certErr
		}
		if created {
			fmt.Printf("Generated self-signed TLS certificate at %s and %s\n", cfg.CertFile, cfg.KeyFile)
		}
		tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}
		ln, err = tlsListenFunc("tcp", cfg.Addr, tlsConfig)
		if err != nil {
			return err
		}
		fmt.Printf("CommandBook listening on %s (TLS enabled, telnet + ANSI ready)\n", ln.Addr())
	} else {
		ln, err = netListenFunc("tcp", cfg.Addr)
		if err != nil {
			return err
		}
		fmt.Printf("CommandBook listening on %s (telnet + ANSI ready)\n", ln.Addr())
	}
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	err = acceptConnections(ln, func(conn net.Conn) {
		go handleConn(conn, world, accounts, dispatcher)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

const (
	acceptBackoffStart = 50 * time.Millisecond
	acceptBackoffMax   = time.Second
)

var acceptSleep = time.Sleep

func acceptConnections(ln net.Listener, handle func(net.Conn)) error {
	backoff := acceptBackoffStart
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isTemporaryAcceptError(err) {
				fmt.Printf("Temporary error accepting connection: %v; retrying in %s\n", err, backoff)
				acceptSleep(backoff)
				backoff *= 2
				if backoff > acceptBackoffMax {
					backoff = acceptBackoffMax
				}
				continue
			}
			return err
		}
		backoff = acceptBackoffStart
		handle(conn)
	}
}

func isTemporaryAcceptError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() || ne.Temporary() {
			return true
		}
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	return false
}
