package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"clima/internal/domain/catalog"
	"clima/internal/platform/config"
)

// Seed loads the demo catalog: a handful of employees, the Spanish-labelled
// categories and the agreement questionnaires for both sections, plus one
// draft period. Everything is idempotent so restarts are safe.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if !cfg.RunSeed {
		return nil
	}

	for _, emp := range seedEmployees {
		if err := ensureEmployee(ctx, pool, emp.fullName, emp.email); err != nil {
			return err
		}
	}

	for _, cat := range seedCategories {
		if err := ensureCategory(ctx, pool, cat.name, cat.section, cat.description, cat.order); err != nil {
			return err
		}
	}

	for _, q := range seedQuestions {
		if err := ensureQuestion(ctx, pool, q); err != nil {
			return err
		}
	}

	return ensurePeriod(ctx, pool, "Clima 2026-S2")
}

var agreementOptions = []string{
	"Totalmente en desacuerdo",
	"En desacuerdo",
	"De acuerdo",
	"Totalmente de acuerdo",
}

var seedEmployees = []struct {
	fullName string
	email    string
}{
	{"Ana Rojas", "ana.rojas@example.com"},
	{"Bruno Castillo", "bruno.castillo@example.com"},
	{"Carla Mendoza", "carla.mendoza@example.com"},
	{"Diego Fuentes", "diego.fuentes@example.com"},
}

var seedCategories = []struct {
	name        string
	section     string
	description string
	order       int
}{
	{"Alimentación", catalog.SectionInternal, "Casino y servicio de alimentación", 1},
	{"Limpieza", catalog.SectionInternal, "Aseo de espacios comunes y oficinas", 2},
	{"Infraestructura", catalog.SectionInternal, "Equipamiento y espacios de trabajo", 3},
	{"Comunicación", catalog.SectionInternal, "Comunicación interna institucional", 4},
	{"Colaboración", catalog.SectionPeer, "Trabajo en equipo", 1},
	{"Comunicación", catalog.SectionPeer, "Comunicación con colegas", 2},
	{"Responsabilidad", catalog.SectionPeer, "Cumplimiento de compromisos", 3},
}

type seedQuestion struct {
	text     string
	category string
	section  string
	kind     string
	options  []string
	required bool
	order    int
}

var seedQuestions = []seedQuestion{
	{"La calidad de la comida del casino es buena", "Alimentación", catalog.SectionInternal, catalog.KindScale, agreementOptions, true, 1},
	{"Los horarios de almuerzo son adecuados", "Alimentación", catalog.SectionInternal, catalog.KindScale, agreementOptions, true, 2},
	{"Los espacios comunes se mantienen limpios", "Limpieza", catalog.SectionInternal, catalog.KindScale, agreementOptions, true, 3},
	{"Los baños están en buenas condiciones", "Limpieza", catalog.SectionInternal, catalog.KindScale, agreementOptions, true, 4},
	{"Cuento con el equipamiento necesario para trabajar", "Infraestructura", catalog.SectionInternal, catalog.KindScale, agreementOptions, true, 5},
	{"La información institucional llega de forma oportuna", "Comunicación", catalog.SectionInternal, catalog.KindScale, agreementOptions, true, 6},
	{"¿Qué mejorarías de la institución?", "", catalog.SectionInternal, catalog.KindText, nil, false, 7},
	{"Colabora activamente con el equipo", "Colaboración", catalog.SectionPeer, catalog.KindScale, agreementOptions, true, 1},
	{"Comunica sus ideas con claridad", "Comunicación", catalog.SectionPeer, catalog.KindScale, agreementOptions, true, 2},
	{"Cumple los compromisos que asume", "Responsabilidad", catalog.SectionPeer, catalog.KindScale, agreementOptions, true, 3},
	{"Comentarios sobre tu colega", "", catalog.SectionPeer, catalog.KindText, nil, false, 4},
}

func ensureEmployee(ctx context.Context, pool *pgxpool.Pool, fullName, email string) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM employees WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}

	_, err = pool.Exec(ctx, "INSERT INTO employees (full_name, email, active) VALUES ($1, $2, true)", fullName, email)
	return err
}

func ensureCategory(ctx context.Context, pool *pgxpool.Pool, name, section, description string, order int) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM categories WHERE name = $1 AND section = $2", name, section).Scan(&id)
	if err == nil {
		return nil
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO categories (name, section, description, display_order) VALUES ($1, $2, $3, $4)",
		name, section, description, order)
	return err
}

func ensureQuestion(ctx context.Context, pool *pgxpool.Pool, q seedQuestion) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM questions WHERE text = $1 AND section = $2", q.text, q.section).Scan(&id)
	if err == nil {
		return nil
	}

	optionsJSON, err := json.Marshal(q.options)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO questions (text, category, section, kind, options, required, display_order, active) VALUES ($1, $2, $3, $4, $5, $6, $7, true)",
		q.text, q.category, q.section, q.kind, optionsJSON, q.required, q.order)
	return err
}

func ensurePeriod(ctx context.Context, pool *pgxpool.Pool, name string) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM periods WHERE name = $1", name).Scan(&id)
	if err == nil {
		return nil
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO periods (name, start_date, end_date, status) VALUES ($1, date_trunc('day', now()), date_trunc('day', now()) + INTERVAL '180 days', $2)",
		name, catalog.PeriodStatusDraft)
	return err
}
