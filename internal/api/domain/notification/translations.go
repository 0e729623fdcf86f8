package notification

// TranslationSet holds the fixed strings of one language. Subject lines are
// fmt formats taking the service name.
type TranslationSet struct {
	Lang string

	PaidSubject    string
	ExpiredSubject string

	Greeting       string
	PaidIntro      string
	PaidNextSteps  string
	ExpiredIntro   string
	ExpiredRetry   string
	LabelOrder     string
	LabelService   string
	LabelAmount    string
	LabelMethod    string
	LabelPaidAt    string
	Footer         string
	SignatureTitle string
}

type Translations interface {
	Get(lang string) TranslationSet
}

const fallbackLanguage = "en"

// StaticTranslations is an in-memory table; unknown languages fall back to English.
type StaticTranslations map[string]TranslationSet

func (t StaticTranslations) Get(lang string) TranslationSet {
	if set, ok := t[lang]; ok {
		return set
	}
	return t[fallbackLanguage]
}

func DefaultTranslations() StaticTranslations {
	return StaticTranslations{
		"en": {
			Lang:           "en",
			PaidSubject:    "Payment received for %s",
			ExpiredSubject: "Your invoice for %s has expired",
			Greeting:       "Hello",
			PaidIntro:      "We have received your payment. Thank you!",
			PaidNextSteps:  "Our team is now verifying your documents. We will contact you once the review is complete.",
			ExpiredIntro:   "The invoice for your order has expired before payment was received.",
			ExpiredRetry:   "If you still want to continue, please place the order again or contact our support team.",
			LabelOrder:     "Order",
			LabelService:   "Service",
			LabelAmount:    "Amount paid",
			LabelMethod:    "Payment method",
			LabelPaidAt:    "Paid at",
			Footer:         "This is an automated message. Please do not reply to this email.",
			SignatureTitle: "Billing team",
		},
		"id": {
			Lang:           "id",
			PaidSubject:    "Pembayaran diterima untuk %s",
			ExpiredSubject: "Tagihan Anda untuk %s telah kedaluwarsa",
			Greeting:       "Halo",
			PaidIntro:      "Kami telah menerima pembayaran Anda. Terima kasih!",
			PaidNextSteps:  "Tim kami sedang memverifikasi dokumen Anda. Kami akan menghubungi Anda setelah pemeriksaan selesai.",
			ExpiredIntro:   "Tagihan untuk pesanan Anda telah kedaluwarsa sebelum pembayaran diterima.",
			ExpiredRetry:   "Jika Anda masih ingin melanjutkan, silakan buat pesanan kembali atau hubungi tim dukungan kami.",
			LabelOrder:     "Pesanan",
			LabelService:   "Layanan",
			LabelAmount:    "Jumlah dibayar",
			LabelMethod:    "Metode pembayaran",
			LabelPaidAt:    "Dibayar pada",
			Footer:         "Ini adalah pesan otomatis. Mohon tidak membalas email ini.",
			SignatureTitle: "Tim penagihan",
		},
	}
}
