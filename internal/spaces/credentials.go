package spaces

import "errors"

var (
	ErrMissingAccessKey = errors.New("access key id is empty")
	ErrMissingSecretKey = errors.New("secret access key is empty")
)

// Credentials is a Spaces access key pair.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// NewCredentials returns a Credentials value; it does not validate.
func NewCredentials(accessKeyID, secretAccessKey string) Credentials {
	return Credentials{AccessKeyID: accessKeyID, SecretAccessKey: secretAccessKey}
}

// Validate reports the first empty field.
func (c Credentials) Validate() error {
	if c.AccessKeyID == "" {
		return ErrMissingAccessKey
	}
	if c.SecretAccessKey == "" {
		return ErrMissingSecretKey
	}
	return nil
}

// String prints the access key id only.
func (c Credentials) String() string {
	if c.SecretAccessKey == "" {
		return c.AccessKeyID + ":<empty>"
	}
	return c.AccessKeyID + ":<redacted>"
}
