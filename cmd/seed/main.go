// Утилита наполнения базы: загружает банк вопросов из JSON-файла и
// планирует соревнование. Используется для локальной разработки и
// первичного развёртывания.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/azamalidev/Kick-Expert-sub000/internal/config"
	"github.com/azamalidev/Kick-Expert-sub000/internal/domain/entity"
	postgresrepo "github.com/azamalidev/Kick-Expert-sub000/internal/repository/postgres"
	"github.com/azamalidev/Kick-Expert-sub000/pkg/database"
)

type seedQuestion struct {
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectChoice int      `json:"correct_choice"`
	Difficulty    string   `json:"difficulty"`
	Category      string   `json:"category"`
}

func main() {
	questionsPath := flag.String("questions", "", "путь к JSON-файлу с банком вопросов")
	name := flag.String("name", "", "название соревнования для планирования")
	startIn := flag.Duration("start-in", 10*time.Minute, "через сколько стартует соревнование")
	questionCount := flag.Int("question-count", 10, "количество вопросов")
	entryFee := flag.Int("entry-fee", 10, "входной взнос")
	difficulty := flag.String("difficulty", entity.CompetitionDifficultyStarter, "сложность (starter/pro/elite)")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[Seed] Не удалось загрузить конфигурацию: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("[Seed] Не удалось подключиться к базе: %v", err)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Fatalf("[Seed] Не удалось применить миграции: %v", err)
	}

	if *questionsPath != "" {
		questionRepo := postgresrepo.NewQuestionRepo(db)
		questions, err := loadQuestions(*questionsPath)
		if err != nil {
			log.Fatalf("[Seed] Не удалось прочитать банк вопросов: %v", err)
		}
		if err := questionRepo.CreateBatch(questions); err != nil {
			log.Fatalf("[Seed] Не удалось загрузить вопросы: %v", err)
		}
		log.Printf("[Seed] Загружено вопросов: %d", len(questions))
	}

	if *name != "" {
		competitionRepo := postgresrepo.NewCompetitionRepo(db)
		comp := &entity.Competition{
			Name:            *name,
			StartTime:       time.Now().Add(*startIn),
			Status:          entity.CompetitionStatusUpcoming,
			QuestionCount:   *questionCount,
			SlotDurationSec: entity.DefaultSlotDurationSec,
			EntryFee:        *entryFee,
			Difficulty:      *difficulty,
		}
		if err := competitionRepo.Create(comp); err != nil {
			log.Fatalf("[Seed] Не удалось создать соревнование: %v", err)
		}
		log.Printf("[Seed] Соревнование %d (%s) стартует %s", comp.ID, comp.Name, comp.StartTime.Format(time.RFC3339))
	}
}

// loadQuestions читает и валидирует банк вопросов из JSON-файла
func loadQuestions(path string) ([]entity.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []seedQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	questions := make([]entity.Question, 0, len(raw))
	for i, q := range raw {
		if q.Text == "" || len(q.Choices) < 2 || q.CorrectChoice < 0 || q.CorrectChoice >= len(q.Choices) {
			log.Printf("[Seed] Вопрос %d пропущен: некорректные данные", i)
			continue
		}
		difficulty := q.Difficulty
		if difficulty == "" {
			difficulty = entity.CompetitionDifficultyStarter
		}
		questions = append(questions, entity.Question{
			Text:          q.Text,
			Choices:       entity.StringArray(q.Choices),
			CorrectChoice: q.CorrectChoice,
			Difficulty:    difficulty,
			Category:      q.Category,
		})
	}
	return questions, nil
}
