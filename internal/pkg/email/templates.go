package email

// BaseTemplate is the layout every email is wrapped in
const BaseTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; padding: 0; font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #faf7f0; color: #2b2b2b; }
        .container { max-width: 600px; margin: 0 auto; padding: 32px 16px; }
        .card { background: #ffffff; border-radius: 10px; padding: 28px; border: 1px solid #ecdcae; }
        h2 { color: #9a7b1c; margin: 0 0 16px; }
        p { font-size: 15px; line-height: 1.6; margin: 0 0 14px; }
        .code { font-family: monospace; background: #f6f1e2; padding: 2px 6px; border-radius: 4px; }
        .footer { text-align: center; color: #999999; font-size: 12px; margin-top: 24px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="card">{{.Content}}</div>
        <div class="footer">This is an automated message, please do not reply.</div>
    </div>
</body>
</html>`

const WelcomeTemplate = `<h2>Welcome, {{.Name}}</h2>
<p>You are now enrolled in <strong>{{.SchemeName}}</strong>.</p>
<p>Sign in with <span class="code">{{.Email}}</span> and the temporary password <span class="code">{{.TempPassword}}</span>.</p>
<p><a href="{{.LoginURL}}">{{.LoginURL}}</a></p>`

const RedemptionDecisionTemplate = `<h2>Hello {{.Name}}</h2>
<p>Your {{.Type}} redemption request was <strong>{{.Status}}</strong>.</p>
{{if .Remarks}}<p>Remarks: {{.Remarks}}</p>{{end}}`

const MaturityReadyTemplate = `<h2>Congratulations, {{.Name}}</h2>
<p>Your scheme <strong>{{.SchemeName}}</strong> has matured with {{.TotalGold}} g of gold.</p>
<p>A payout request has been created and is awaiting approval.</p>`
