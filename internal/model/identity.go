package model

// Identity is the signed-in principal as reported by the identity provider.
type Identity struct {
	UID      string `json:"uid"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}
