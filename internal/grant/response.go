package grant

import "strings"

// TokenResponse is the successful token endpoint body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ResponseFormatter turns issued artifacts into the wire response.
type ResponseFormatter interface {
	Format(issued *Issued) *TokenResponse
}

// BearerFormatter emits RFC 6750 bearer responses.
type BearerFormatter struct{}

func (BearerFormatter) Format(issued *Issued) *TokenResponse {
	resp := &TokenResponse{
		AccessToken: issued.Access.ID,
		TokenType:   "Bearer",
		ExpiresIn:   int64(issued.AccessTTL.Seconds()),
		Scope:       strings.Join(issued.Access.Scopes, " "),
	}
	if issued.Refresh != nil {
		resp.RefreshToken = issued.Refresh.ID
	}
	return resp
}
