package language

// DefaultCode is the storefront fallback language.
const DefaultCode = "en-US"

// Supported describes one storefront language and its voice-assistant UI strings.
type Supported struct {
	Code           string            `json:"code"`
	DisplayName    string            `json:"display_name"`
	LocalizedUIMap map[string]string `json:"ui_strings"`
}

// registry is built once at init and never mutated afterwards.
var registry = map[string]Supported{
	"en-US": {
		Code:        "en-US",
		DisplayName: "English",
		LocalizedUIMap: map[string]string{
			"greeting":   "Hi! What would you like to eat today?",
			"listening":  "Listening...",
			"processing": "One moment...",
			"error":      "Sorry, something went wrong. Please try again.",
		},
	},
	"hi-IN": {
		Code:        "hi-IN",
		DisplayName: "हिन्दी",
		LocalizedUIMap: map[string]string{
			"greeting":   "नमस्ते! आज आप क्या खाना चाहेंगे?",
			"listening":  "सुन रहा हूँ...",
			"processing": "एक क्षण...",
			"error":      "क्षमा करें, कुछ गड़बड़ हो गई। कृपया फिर से कोशिश करें।",
		},
	},
	"bn-IN": {
		Code:        "bn-IN",
		DisplayName: "বাংলা",
		LocalizedUIMap: map[string]string{
			"greeting":   "নমস্কার! আজ আপনি কী খেতে চান?",
			"listening":  "শুনছি...",
			"processing": "এক মুহূর্ত...",
			"error":      "দুঃখিত, কিছু ভুল হয়েছে। আবার চেষ্টা করুন।",
		},
	},
	"ta-IN": {
		Code:        "ta-IN",
		DisplayName: "தமிழ்",
		LocalizedUIMap: map[string]string{
			"greeting":   "வணக்கம்! இன்று என்ன சாப்பிட விரும்புகிறீர்கள்?",
			"listening":  "கேட்கிறேன்...",
			"processing": "ஒரு நிமிடம்...",
			"error":      "மன்னிக்கவும், ஏதோ தவறு நடந்தது. மீண்டும் முயற்சிக்கவும்.",
		},
	},
	"te-IN": {
		Code:        "te-IN",
		DisplayName: "తెలుగు",
		LocalizedUIMap: map[string]string{
			"greeting":   "నమస్తే! ఈరోజు మీరు ఏమి తినాలనుకుంటున్నారు?",
			"listening":  "వింటున్నాను...",
			"processing": "ఒక్క క్షణం...",
			"error":      "క్షమించండి, ఏదో తప్పు జరిగింది. మళ్ళీ ప్రయత్నించండి.",
		},
	},
	"mr-IN": {
		Code:        "mr-IN",
		DisplayName: "मराठी",
		LocalizedUIMap: map[string]string{
			"greeting":   "नमस्कार! आज तुम्हाला काय खायला आवडेल?",
			"listening":  "ऐकत आहे...",
			"processing": "एक क्षण...",
			"error":      "क्षमस्व, काहीतरी चूक झाली. कृपया पुन्हा प्रयत्न करा.",
		},
	},
}

// codeOrder keeps listings stable for API responses and prompts.
var codeOrder = []string{"en-US", "hi-IN", "bn-IN", "ta-IN", "te-IN", "mr-IN"}

// Codes returns the supported language codes in stable order.
func Codes() []string {
	out := make([]string, len(codeOrder))
	copy(out, codeOrder)
	return out
}

// All returns the supported languages in stable order.
func All() []Supported {
	out := make([]Supported, 0, len(codeOrder))
	for _, code := range codeOrder {
		out = append(out, registry[code])
	}
	return out
}

// Lookup returns the language entry for code.
func Lookup(code string) (Supported, bool) {
	l, ok := registry[code]
	return l, ok
}

// IsSupported reports whether code is a storefront language.
func IsSupported(code string) bool {
	_, ok := registry[code]
	return ok
}

// UIString returns a localized assistant UI string, falling back to the
// default language when the code or key is unknown.
func UIString(code, key string) string {
	if l, ok := registry[code]; ok {
		if s, ok := l.LocalizedUIMap[key]; ok {
			return s
		}
	}
	return registry[DefaultCode].LocalizedUIMap[key]
}
