package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/SIMHADRI-1817/Smart-Clinic/database"
	"github.com/SIMHADRI-1817/Smart-Clinic/handlers"
	"github.com/SIMHADRI-1817/Smart-Clinic/middleware"
	"github.com/SIMHADRI-1817/Smart-Clinic/routes"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
	"github.com/SIMHADRI-1817/Smart-Clinic/storage"
)

func main() {
	// Cargar variables de entorno
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: could not load .env file")
	}

	ctx := context.Background()

	// Elegir almacén: Postgres con DATABASE_URL, en memoria para desarrollo
	var (
		appts scheduling.AppointmentStore
		users scheduling.UserStore
		audit *middleware.AuditLogger
	)
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		pool, err := database.Connect(ctx, databaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		if err := database.Seed(ctx, pool); err != nil {
			log.Fatalf("database seed failed: %v", err)
		}
		log.Println("Connected to the database")

		store := storage.NewPostgres(pool)
		appts, users = store, store
		audit = middleware.NewAuditLogger(pool)
	} else {
		log.Println("DATABASE_URL not set, using in-memory store (data is not persisted)")
		store := storage.NewMemory()
		appts, users = store, store
		audit = middleware.NewAuditLogger(nil)
	}

	core := scheduling.NewCore(appts)
	h := handlers.New(core, users, audit)

	// Crear instancia de Fiber con configuración
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
		AppName: "Smart Clinic API v1.0.0",
	})

	// Configurar rutas
	routes.SetupRoutes(app, h)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error":   "route not found",
			"message": "the requested route does not exist on this server",
			"path":    c.Path(),
			"method":  c.Method(),
		})
	})

	// Obtener puerto del entorno o usar 3000 por defecto
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Printf("Smart Clinic API listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}
