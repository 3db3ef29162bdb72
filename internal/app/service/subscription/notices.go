package subscription

import (
	"fmt"

	"github.com/fatflowers/coiffeur/pkg/types"
)

type notice struct {
	title    string
	message  string
	severity types.Severity
}

func welcomeNotice() notice {
	return notice{
		title:    "Your salon is ready",
		message:  "Your salon was created and your free trial has started. Add services and offers to attract customers.",
		severity: types.SeveritySuccess,
	}
}

func giftNotice(days int, note string) notice {
	msg := fmt.Sprintf("%d days were added to your subscription as a gift from the Coiffeur team.", days)
	if note != "" {
		msg += " Reason: " + note
	}
	return notice{title: "Subscription gift", message: msg, severity: types.SeveritySuccess}
}

func cancelNotice() notice {
	return notice{
		title:    "Subscription cancelled",
		message:  "Your subscription was cancelled by the site administration. Please contact support for details.",
		severity: types.SeverityError,
	}
}

func banNotice() notice {
	return notice{
		title:    "Salon suspended",
		message:  "Your salon was hidden from search by the administration. Please review the usage policy or contact support.",
		severity: types.SeverityError,
	}
}
