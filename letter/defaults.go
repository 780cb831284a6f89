package letter

import (
	"time"

	"github.com/google/uuid"
)

// Brand palette.
const (
	ColorMidnight = "#1B3C53"
	ColorSteel    = "#456882"
	ColorSand     = "#D2C1B6"
	ColorLinen    = "#F9F3EF"
)

// DefaultContacts are printed when a letterhead has none.
var DefaultContacts = []string{
	"110101, Toshkent vil., Olmaliq sh., Olimpiya k-si, Metallurg stadioni Tel.: 7061-9-59-20, 7061-5-33-08",
	"110101, Tashkent dist., Almalyk city., Olympia str., Metallurg stadium, Pho.: Tel.: 7061-9-59-20, 7061-5-33-08",
}

// Categories offered by the editor.
var Categories = []string{"Transfer", "Shartnoma", "Tadbir", "Homiylik", "Rasmiy murojaat"}

// DefaultLetterhead returns the club's standard branding.
func DefaultLetterhead() Letterhead {
	return Letterhead{
		Company:         `"PFK AGMK" MChJ | "PFK AGMK" LLC`,
		Tagline:         "OKMK futbol klubi | Football Club OKMK",
		Contacts:        append([]string(nil), DefaultContacts...),
		PrimaryColor:    ColorMidnight,
		AccentColor:     ColorSand,
		BackgroundColor: ColorLinen,
		TextColor:       ColorMidnight,
	}
}

// DefaultPayload returns the template letter, due on the given day.
func DefaultPayload(today time.Time) Payload {
	return Payload{
		Meta: Meta{
			Title:         "O'yinchi transferi bo'yicha rasmiy ma'lumotnoma",
			Category:      "Transfer",
			RecipientName: "Azizbek Ahmedov",
			RecipientRole: "Sport direktori",
			Organization:  `"PFK AGMK" MChJ`,
			Priority:      PriorityNormal,
			Language:      "uz",
			DueDate:       today.UTC().Format(time.DateOnly),
			Reference:     "TR-2025-04-18",
			SignatoryName: "Rustam Ganiev",
			SignatoryRole: "Ijrochi direktor",
		},
		Sections: []Section{
			{
				ID:      uuid.NewString(),
				Heading: "Maqsad",
				Body:    "Klubimizning 2025 yilgi transfer rejasiga muvofiq, asosiy yarim himoya chizig'ini kuchaytirish uchun tavsiya etilayotgan o'yinchi haqida ma'lumot taqdim qilinmoqda.",
			},
			{
				ID:      uuid.NewString(),
				Heading: "Asosiy tafsilotlar",
				Body:    "Nomzod: Luis Fernandez\nPozitsiya: Markaziy yarim himoyachi\nTransfer qiymati: 4.2 mln yevro\nBonus klauzalari: 0.8 mln yevro\nShartnoma muddati: 3 yil",
			},
			{
				ID:      uuid.NewString(),
				Heading: "Keyingi qadamlar",
				Body:    "Tibbiy ko'rik jadvali 24-aprel kuni soat 9:00ga belgilangan. Yakuniy tasdiq uchun 30-aprelga qadar javob berishingizni so'raymiz.",
			},
		},
		Notes: "Klub yuridik bo'limi bilan to'liq kelishuv tayyor. Homiylik shartlari Marketing bo'limi tomonidan qo'llab-quvvatlanadi.",
		Attachments: []Attachment{
			{ID: uuid.NewString(), Name: "Moliyaviy hisobot", Description: "Kechiktirilgan tolov va ragbatlantirish shartlari"},
			{ID: uuid.NewString(), Name: "Tibbiy xulosa", Description: "Pre-sezon tibbiy tekshiruv natijalari (2025/02)"},
		},
	}
}
