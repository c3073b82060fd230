// Command seed loads the demo students and tools. Existing records (matched
// by RFID UID) are skipped, so it is safe to run repeatedly.
package main

import (
	"context"
	"os"

	"rfid_tool_kiosk/app"
	"rfid_tool_kiosk/config"
	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"

	"github.com/rs/zerolog"
)

var students = []models.Student{
	{Name: "Ahmad Fauzi", NIM: "1234567890", Email: "ahmad.fauzi@university.ac.id", Phone: "081234567890", RFIDUID: "STUDENT001"},
	{Name: "Siti Nurhaliza", NIM: "0987654321", Email: "siti.nurhaliza@university.ac.id", Phone: "081234567891", RFIDUID: "STUDENT002"},
	{Name: "Budi Santoso", NIM: "1122334455", Email: "budi.santoso@university.ac.id", Phone: "081234567892", RFIDUID: "STUDENT003"},
	{Name: "Dewi Lestari", NIM: "5544332211", Email: "dewi.lestari@university.ac.id", Phone: "081234567893", RFIDUID: "STUDENT004"},
	{Name: "Rizki Pratama", NIM: "6677889900", Email: "rizki.pratama@university.ac.id", Phone: "081234567894", RFIDUID: "STUDENT005"},
}

var tools = []models.Tool{
	{Name: "Drill Machine", RFIDUID: "TOOL001", Category: "Power Tools"},
	{Name: "Angle Grinder", RFIDUID: "TOOL002", Category: "Power Tools"},
	{Name: "Soldering Iron", RFIDUID: "TOOL003", Category: "Electronics"},
	{Name: "Multimeter Digital", RFIDUID: "TOOL004", Category: "Electronics"},
	{Name: "Circular Saw", RFIDUID: "TOOL005", Category: "Power Tools"},
	{Name: "Oscilloscope", RFIDUID: "TOOL006", Category: "Electronics"},
	{Name: "Impact Driver", RFIDUID: "TOOL007", Category: "Power Tools"},
	{Name: "Hot Air Station", RFIDUID: "TOOL008", Category: "Electronics"},
	{Name: "Belt Sander", RFIDUID: "TOOL009", Category: "Power Tools"},
	{Name: "Wire Stripper Set", RFIDUID: "TOOL010", Category: "Hand Tools"},
}

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	log := app.NewLogger(cfg.Production(), cfg.LogLevel)

	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	repo := db.NewRepo(conn, cfg.Database.LockTimeout)

	if err := seed(context.Background(), repo, log); err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
}

func seed(ctx context.Context, repo *db.Repo, log zerolog.Logger) error {
	var created, skipped int
	for i := range students {
		s := students[i]
		existing, err := repo.FindStudentByUID(ctx, s.RFIDUID)
		if err != nil {
			return err
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := repo.CreateStudent(ctx, &s); err != nil {
			return err
		}
		created++
	}
	for i := range tools {
		t := tools[i]
		existing, err := repo.FindToolByUID(ctx, t.RFIDUID)
		if err != nil {
			return err
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := repo.CreateTool(ctx, &t); err != nil {
			return err
		}
		created++
	}
	log.Info().Int("created", created).Int("skipped", skipped).Msg("seed complete")
	return nil
}
