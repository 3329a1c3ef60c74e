package email

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

const whenLayout = "Mon, Jan 2, 2006 at 3:04 PM"

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<p>Hi {{.Name}},</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}<p>- GymOps Team</p>
</body></html>`))

// Message is a rendered notification ready for Notify.
type Message struct {
	Subject string
	HTML    string
}

func render(subject, name string, lines ...string) Message {
	var buf bytes.Buffer
	// Execute only fails on a broken template or writer; both are static here.
	_ = layout.Execute(&buf, struct {
		Name  string
		Lines []string
	}{name, lines})
	return Message{Subject: subject, HTML: buf.String()}
}

func when(t time.Time) string {
	return t.Format(whenLayout)
}

func SessionScheduled(memberName, trainerName string, start time.Time) Message {
	return render("Training session scheduled", memberName,
		"A training session with "+trainerName+" has been scheduled.",
		"Start: "+when(start),
	)
}

func SessionCompleted(memberName string, start time.Time, remaining *int) Message {
	lines := []string{"Your training session on " + when(start) + " is complete. Great work!"}
	if remaining != nil {
		lines = append(lines, "Sessions remaining on your package: "+strconv.Itoa(*remaining))
	}
	return render("Training session completed", memberName, lines...)
}

func SessionCancelled(memberName string, start time.Time, reason string) Message {
	lines := []string{"Your training session on " + when(start) + " has been cancelled."}
	if reason != "" {
		lines = append(lines, "Reason: "+reason)
	}
	return render("Training session cancelled", memberName, lines...)
}

func ChangeRequested(recipientName, memberName, kind string, start time.Time, proposed *time.Time, reason string) Message {
	lines := []string{memberName + " requested to " + kind + " the session on " + when(start) + "."}
	if proposed != nil {
		lines = append(lines, "Proposed start: "+when(*proposed))
	}
	if reason != "" {
		lines = append(lines, "Reason: "+reason)
	}
	return render("Session "+kind+" request", recipientName, lines...)
}

func SessionReminder(memberName, trainerName string, start time.Time, lead string) Message {
	return render("Reminder: training session in "+lead, memberName,
		"Your training session with "+trainerName+" starts "+when(start)+".",
	)
}

func MembershipExpiring(memberName, plan string, end time.Time) Message {
	return render("Your membership expires soon", memberName,
		"Your "+plan+" membership expires on "+when(end)+".",
		"Renew at the front desk to keep training without interruption.",
	)
}

func MembershipExpired(memberName, plan string, end time.Time) Message {
	return render("Your membership has expired", memberName,
		"Your "+plan+" membership expired on "+when(end)+".",
	)
}

func PaymentReminder(memberName, amount, description string, created time.Time) Message {
	return render("Payment reminder", memberName,
		"A payment of "+amount+" for "+description+" has been pending since "+when(created)+".",
	)
}

func PaymentOverdue(memberName, amount, description string, created time.Time) Message {
	return render("Payment overdue", memberName,
		"Your payment of "+amount+" for "+description+" is overdue (issued "+when(created)+").",
		"Please settle it as soon as possible.",
	)
}

func AppointmentReminder(memberName, purpose string, start time.Time, lead string) Message {
	return render("Reminder: appointment in "+lead, memberName,
		"Your appointment ("+purpose+") is at "+when(start)+".",
	)
}

func ClassReminder(memberName, className string, start time.Time) Message {
	return render("Reminder: "+className+" tomorrow", memberName,
		"You are enrolled in "+className+" on "+when(start)+".",
	)
}
