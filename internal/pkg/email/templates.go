package email

// WelcomeTemplate greets a new user after signup.
const WelcomeTemplate = `
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h1 style="color: #008080;">Welcome to NoaiGPT</h1>
    <p>Dear {{.Name}},</p>
    <p>Your account is ready. You start with {{.FreeCredits}} free rewrites, valid
    until {{.ExpirationDate}}.</p>
    {{if .ReferralBonus}}<p>A referral bonus of {{.ReferralBonus}} rewrites has been
    added to your balance.</p>{{end}}
    <p>Best regards,<br>The NoaiGPT Team</p>
  </body>
</html>
`

// OrderSubmittedTemplate notifies the operator that a manual payment proof arrived.
const OrderSubmittedTemplate = `
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h1 style="color: #008080;">New Manual Payment Confirmation</h1>
    <ul>
      <li><strong>Order ID:</strong> {{.OrderID}}</li>
      <li><strong>Transaction Details:</strong> {{.Proof}}</li>
      <li><strong>Order Status:</strong> {{.Status}}</li>
      <li><strong>Time:</strong> {{.Time}}</li>
    </ul>
  </body>
</html>
`

// OrderApprovedTemplate notifies the user that their order settled.
const OrderApprovedTemplate = `
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h1 style="color: #008080;">Order Approved</h1>
    <p>Dear {{.Name}},</p>
    <p>Your order has been marked as approved. Your points have been updated in the system.</p>
    <h2>Purchase Details</h2>
    <ul>
      <li><strong>Transaction ID:</strong> {{.TransactionID}}</li>
      <li><strong>Amount:</strong> {{.Amount}}</li>
      <li><strong>Payment Method:</strong> {{.PaymentMethod}}</li>
      <li><strong>Expiration Date:</strong> {{.ExpirationDate}}</li>
    </ul>
    <p>You can download your invoice by clicking the link below:</p>
    <p><a href="{{.InvoiceURL}}" style="color: #008080;">Download Invoice</a></p>
    <p>Thank you for your order!</p>
    <p>Best regards,<br>The NoaiGPT Team</p>
  </body>
</html>
`
