package workflow

// Selectors locates the portal elements each stage interacts with. CSS
// queries, or XPath when prefixed with "//". The defaults target the Indian
// trademark e-filing portal; they are configurable because portal markup
// changes without notice.
type Selectors struct {
	// Login page.
	UsernameField string
	PasswordField string
	CaptchaImage  string
	CaptchaField  string
	LoginButton   string

	// Welcome page marker that confirms authentication.
	WelcomeMarker string

	// Navigation links and the markers proving each page arrived.
	ViewAllNotificationsLink string
	NotificationsMarker      string
	DetailViewAllLink        string
	DetailMarker             string

	// Export control on the detail listing.
	ExportButton string
}

// DefaultSelectors returns the selectors for the production portal.
func DefaultSelectors() Selectors {
	return Selectors{
		UsernameField: `input[name="txtLoginName"]`,
		PasswordField: `input[name="txtPassword"]`,
		CaptchaImage:  `img[id*="Captcha"]`,
		CaptchaField:  `input[name="txtCaptcha"]`,
		LoginButton:   `input[value="Login"]`,

		WelcomeMarker: `//a[contains(normalize-space(.),'View All Notifications')]`,

		ViewAllNotificationsLink: `//a[contains(normalize-space(.),'View All Notifications')]`,
		NotificationsMarker:      `//a[contains(normalize-space(.),'View All')]`,
		DetailViewAllLink:        `//a[contains(normalize-space(.),'View All')]`,
		DetailMarker:             `input[value='Export to Excel']`,

		ExportButton: `input[value='Export to Excel']`,
	}
}
