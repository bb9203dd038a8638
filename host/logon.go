package host

import (
	"errors"
	"syscall"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/devgianlu/go-hostctl/wstr"
)

const (
	errorInvalidAccountName = 1315
	errorUserExists         = 1316
	errorWrongPassword      = 1323
	errorLogonFailure       = 1326
	errorAccountRestriction = 1327
	errorPasswordExpired    = 1330
	errorAccountDisabled    = 1331
)

const (
	maxUsernameLength = 256
	maxPasswordLength = 256
	maxDomainLength   = 256
)

// MapLogonError translates the error of a failed logon into the logon part
// of the taxonomy.
func MapLogonError(err error) *hostctl.Error {
	var herr *hostctl.Error
	if errors.As(err, &herr) {
		return herr
	}

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return hostctl.ErrUnknownLogonFailure
	}

	switch errno {
	case errorLogonFailure, errorUserExists, errorInvalidAccountName, errorPasswordExpired:
		return hostctl.ErrLogonFailure
	case errorAccountRestriction:
		return hostctl.ErrAccountRestriction
	case errorWrongPassword:
		return hostctl.ErrWrongPassword
	case errorAccountDisabled:
		return hostctl.ErrAccountDisabled
	default:
		return hostctl.ErrUnknownLogonFailure
	}
}

func encodeCredential(s string, limit int, optional bool) ([]uint16, error) {
	var buf []uint16
	var err error
	if optional {
		buf, err = wstr.EncodeOptional(s, limit)
	} else {
		buf, err = wstr.Encode(s, limit)
	}

	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, wstr.ErrEmpty):
		return nil, hostctl.ErrCredentialsEmpty
	case errors.Is(err, wstr.ErrTooLong):
		return nil, hostctl.ErrParameterTooLong
	case errors.Is(err, wstr.ErrNul), errors.Is(err, wstr.ErrInvalidUTF8):
		return nil, hostctl.ErrIllegalCharacter
	default:
		return nil, hostctl.ErrParameter
	}
}

// resolveUsername maps a display name to the account name it belongs to.
// Names that match no account are returned unchanged.
func (c *Controller) resolveUsername(username string) string {
	users, err := c.sys.enumerateUsers()
	if err != nil {
		c.log.WithError(err).Debug("failed enumerating local users")
		return username
	}

	for _, user := range users {
		if user.Username == username {
			return username
		}
	}

	for _, user := range users {
		if len(user.FullName) > 0 && user.FullName == username {
			return user.Username
		}
	}

	return username
}

// TryLogin checks the credentials with an interactive logon. No session is
// kept: the token is released before returning. The result is nil or one of
// the logon errors of the taxonomy.
func (c *Controller) TryLogin(username, password, domain string) error {
	log := c.log.WithField("username", hostctl.ObfuscateUsername(username))

	if len(username) == 0 || len(password) == 0 {
		return hostctl.ErrCredentialsEmpty
	}

	account := c.resolveUsername(username)

	usernameW, err := encodeCredential(account, maxUsernameLength, false)
	if err != nil {
		return err
	}

	passwordW, err := encodeCredential(password, maxPasswordLength, false)
	if err != nil {
		return err
	}
	defer wstr.Zero(passwordW)

	domainW, err := encodeCredential(domain, maxDomainLength, true)
	if err != nil {
		return err
	}

	closeToken, err := c.sys.logonUser(usernameW, domainW, passwordW)
	if err != nil {
		mapped := MapLogonError(err)
		log.WithError(err).Infof("logon rejected: %s", mapped.Msg)
		return mapped
	}

	if err := closeToken(); err != nil {
		log.WithError(err).Warn("failed closing logon token")
	}

	log.Debug("logon verified")
	return nil
}

// EnumerateUsers lists the normal local accounts.
func (c *Controller) EnumerateUsers() ([]UserInfo, error) {
	return c.sys.enumerateUsers()
}
