package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

// Emails are Turkish, the product targets Turkish small businesses.

var layout = template.Must(template.New("layout").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>{{.Title}}</h2>
<p>{{.Body}}</p>
{{if .Link}}<p><a href="{{.Link}}" style="background:#4f46e5;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none">{{.Action}}</a></p>{{end}}
<p style="color:#6b7280;font-size:12px">UppyPro</p>
</body></html>`))

type view struct {
	Title  string
	Body   string
	Link   string
	Action string
}

func render(v view) string {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, v); err != nil {
		return v.Body
	}
	return buf.String()
}

// InviteEmail invitation to join a tenant
func InviteEmail(to, tenantName, link string) Email {
	title := fmt.Sprintf("%s sizi UppyPro'ya davet etti", tenantName)
	body := fmt.Sprintf("%s ekibine katılmak için aşağıdaki bağlantıyı kullanın. Bağlantı 7 gün geçerlidir.", tenantName)
	return Email{
		To:      []string{to},
		Subject: title,
		HTML:    render(view{Title: title, Body: body, Link: link, Action: "Daveti kabul et"}),
		Text:    body + "\n" + link,
	}
}

// PaymentFailedEmail renewal charge was declined
func PaymentFailedEmail(to []string, tenantName, billingLink string) Email {
	title := "Ödemeniz alınamadı"
	body := fmt.Sprintf("%s aboneliğinin yenileme ödemesi başarısız oldu. Hizmetin kesintiye uğramaması için ödeme bilgilerinizi güncelleyin.", tenantName)
	return Email{
		To:      to,
		Subject: title,
		HTML:    render(view{Title: title, Body: body, Link: billingLink, Action: "Ödeme bilgilerini güncelle"}),
		Text:    body + "\n" + billingLink,
	}
}

// NotificationEmail generic email for a tenant notification
func NotificationEmail(to []string, title, body, link string) Email {
	return Email{
		To:      to,
		Subject: title,
		HTML:    render(view{Title: title, Body: body, Link: link, Action: "Görüntüle"}),
		Text:    body,
	}
}
