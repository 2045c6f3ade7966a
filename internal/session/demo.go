package session

import (
	"github.com/example/mediatranslate/internal/models"
)

// DemoFilename is the synthetic file name of the demo session
const DemoFilename = "demo_example.png"

// DemoResult returns the canned bilingual result shown by the demo
func DemoResult() *models.ProcessingResult {
	original := "Привет! Это демонстрационный пример работы системы AI-Translate. Мы используем передовые AI-модели для распознавания текста и речи, а также для перевода на множество языков."
	return &models.ProcessingResult{
		Recognition: models.Recognition{
			Text:     original,
			Language: "ru",
		},
		Translation: models.Translation{
			SourceLanguage: "ru",
			OriginalText:   original,
			Translations: models.NewTranslations(
				[2]string{"kk", "Сәлем! Бұл AI-Translate жүйесінің жұмысының демонстрациялық мысалы. Біз мәтін мен сөйлеуді тану, сондай-ақ көптеген тілдерге аударма жасау үшін озық AI модельдерін қолданамыз."},
				[2]string{"en", "Hello! This is a demonstration example of the AI-Translate system. We use advanced AI models for text and speech recognition, as well as translation into many languages."},
			),
		},
	}
}
