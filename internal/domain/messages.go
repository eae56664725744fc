package domain

// MessageKey identifies a user-visible session message. The rendered text is
// chosen per request locale.
type MessageKey string

const (
	MsgNone            MessageKey = ""
	MsgTravelFailed    MessageKey = "travel_failed"
	MsgVideoFailed     MessageKey = "video_failed"
	MsgEditFailed      MessageKey = "edit_failed"
	MsgAnalyzeFailed   MessageKey = "analyze_failed"
	MsgKeyRequired     MessageKey = "key_required"
	MsgShareFailed     MessageKey = "share_failed"
	MsgCameraDenied    MessageKey = "camera_denied"
	MsgUnreadableImage MessageKey = "unreadable_image"
)

var messages = map[string]map[MessageKey]string{
	"en": {
		MsgTravelFailed:    "Time travel malfunction! Could not generate image. Please try again.",
		MsgVideoFailed:     "Video generation failed. Please try again.",
		MsgEditFailed:      "Edit failed. Try a different prompt.",
		MsgAnalyzeFailed:   "Analysis failed.",
		MsgKeyRequired:     "You must select a paid API key to use video generation.",
		MsgShareFailed:     "Sharing failed. Try downloading instead.",
		MsgCameraDenied:    "Unable to access camera. Please allow permissions.",
		MsgUnreadableImage: "That file could not be read as an image.",
	},
	"id": {
		MsgTravelFailed:    "Mesin waktu bermasalah! Gambar gagal dibuat. Silakan coba lagi.",
		MsgVideoFailed:     "Pembuatan video gagal. Silakan coba lagi.",
		MsgEditFailed:      "Edit gagal. Coba instruksi lain.",
		MsgAnalyzeFailed:   "Analisis gagal.",
		MsgKeyRequired:     "Anda harus memilih API key berbayar untuk membuat video.",
		MsgShareFailed:     "Gagal membagikan. Coba unduh saja.",
		MsgCameraDenied:    "Kamera tidak dapat diakses. Mohon izinkan akses kamera.",
		MsgUnreadableImage: "Berkas tersebut tidak dapat dibaca sebagai gambar.",
	},
}

// Text renders the message for locale, falling back to English.
func (k MessageKey) Text(locale string) string {
	if k == MsgNone {
		return ""
	}
	if table, ok := messages[locale]; ok {
		if s, ok := table[k]; ok {
			return s
		}
	}
	return messages["en"][k]
}
