// Package routepath stores canonical HTTP paths for web modules.
package routepath

const (
	Root   = "/"
	Health = "/up"
	Static = "/static/"

	AccountPrefix     = "/account/"
	RegisterPrefix    = "/account/register/"
	Register          = "/account/register/"
	RegisterRecommend = "/account/register/recommend"
	RegisterValidate  = "/account/register/validate"
	RegisterWait      = "/account/register/wait/"
	RegisterPending   = "/account/register/pending/"
	RegisterCreated   = "/account/register/created/"

	CalnetPrefix   = "/calnet/"
	CalnetLogin    = "/calnet/login"
	CalnetStart    = "/calnet/start"
	CalnetCallback = "/calnet/callback"
	CalnetLogout   = "/calnet/logout"
	CalnetDevLogin = "/calnet/dev-login"
)
