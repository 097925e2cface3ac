package socks5

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// Auth configures optional username/password authentication toward an
// upstream SOCKS5 proxy.
type Auth struct {
	Username string
	Password string
}

// ClientDial negotiates with an upstream SOCKS5 server over rw and asks it to
// CONNECT to target. It returns the upstream's bound endpoint.
func ClientDial(rw io.ReadWriter, auth Auth, target Endpoint) (Endpoint, error) {
	if err := ClientNegotiate(rw, auth); err != nil {
		return Endpoint{}, err
	}
	return ClientConnect(rw, target)
}

func ClientNegotiate(rw io.ReadWriter, auth Auth) error {
	methods := []byte{txsocks5.MethodNone}
	if auth.Username != "" {
		methods = append(methods, txsocks5.MethodUsernamePassword)
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(rw); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(rw)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}

	switch neg.Method {
	case txsocks5.MethodNone:
		return nil
	case txsocks5.MethodUsernamePassword:
		if auth.Username == "" {
			return errors.New("upstream requires username/password")
		}

		if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(rw); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(rw)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if rep.Status != txsocks5.UserPassStatusSuccess {
			return errors.New("upstream rejected username/password")
		}
		return nil
	case MethodNoAcceptable:
		return ErrNoAcceptableAuth
	default:
		return fmt.Errorf("unsupported negotiation method: %d", neg.Method)
	}
}

// ClientConnect sends a CONNECT request for target and reads the reply. A
// non-success reply is reported as ErrConnectFailed.
func ClientConnect(rw io.ReadWriter, target Endpoint) (Endpoint, error) {
	raw := target.AppendTo(nil)
	atyp, addr, port := raw[0], raw[1:len(raw)-2], raw[len(raw)-2:]

	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, addr, port).WriteTo(rw); err != nil {
		return Endpoint{}, fmt.Errorf("write request: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != txsocks5.RepSuccess {
		return Endpoint{}, fmt.Errorf("%w: upstream replied %v", ErrConnectFailed, ReplyCode(rep.Rep))
	}

	// Domain-typed bound addresses carry no usable endpoint.
	if rep.Atyp != ATYPIPv4 && rep.Atyp != ATYPIPv6 {
		return Endpoint{}, nil
	}
	bound, err := ReadEndpoint(bytes.NewReader(append(rep.BndAddr, rep.BndPort...)), rep.Atyp)
	if err != nil {
		return Endpoint{}, fmt.Errorf("bound address: %w", err)
	}
	return bound, nil
}
