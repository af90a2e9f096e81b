package notify

import (
	"fmt"
	"net/url"
	"time"
)

func PasswordResetMessage(to, frontendURL, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", frontendURL, url.QueryEscape(token))
	return Message{
		To:      to,
		Subject: "Password reset",
		Body: fmt.Sprintf(
			"Hello,\n\nSomeone asked to reset the password of your VinylKeeper account.\n"+
				"Follow the link below to choose a new one:\n\n%s\n\n"+
				"Link expires in %d minutes. If you did not ask for this, ignore this email.\n",
			link, int(ttl.Minutes()),
		),
	}
}

func NewUserAlertMessage(adminEmail, username, email string) Message {
	return Message{
		To:      adminEmail,
		Subject: "New user registered",
		Body: fmt.Sprintf(
			"A new user just registered on VinylKeeper.\n\nUsername: %s\nEmail: %s\n",
			username, email,
		),
	}
}
