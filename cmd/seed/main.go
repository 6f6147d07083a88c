package main

import (
	"context"
	"log/slog"
	"os"

	"market/internal/config"
	"market/internal/domain/model"
	"market/internal/infra/db"
	infraRepo "market/internal/infra/repository"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// 初期カタログ。slugで突き合わせるので何度流してもよい（IDは空のDBなら1から順）
var seedProducts = []model.Product{
	{
		Slug:        "terra-boots",
		Name:        "TERRA.BOOTS",
		Tagline:     "All-terrain daily boot",
		Description: "Structured leather upper with weather-ready sole and recycled lining, built for city gravel and weekend trail loops.",
		Price:       195,
		Category:    model.CategoryFootwear,
		Accent:      "#c9a87c",
		HeroImage:   "https://images.unsplash.com/photo-1542291026-7eec264c27ff?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1549298916-b41d501d3772?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1525966222134-fcfa99b8ae77?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  17,
		Rating: 4.8,
	},
	{
		Slug:        "moss-jacket",
		Name:        "MOSS.JACKET",
		Tagline:     "Insulated utility shell",
		Description: "Relaxed cut field jacket with breathable insulation and storm flap, tuned for wind, mist, and layered winter fits.",
		Price:       145,
		Category:    model.CategoryOuterwear,
		Accent:      "#7a8b5c",
		HeroImage:   "https://images.unsplash.com/photo-1556905055-8f358a7a47b2?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1539533113208-f6df8cc8b543?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  12,
		Rating: 4.6,
	},
	{
		Slug:        "clay-bag",
		Name:        "CLAY.BAG",
		Tagline:     "Expandable crossbody",
		Description: "Modular interior and matte waxed canvas shell. Carries laptop, market haul, and weekend essentials in one clean block.",
		Price:       85,
		Category:    model.CategoryBags,
		Accent:      "#c67a4a",
		HeroImage:   "https://images.unsplash.com/photo-1590874103328-eac38a683ce7?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1548036328-c9fa89d128fa?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1584917865442-de89df76afd3?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  20,
		Rating: 4.7,
	},
	{
		Slug:        "stone-shades",
		Name:        "STONE.SHADES",
		Tagline:     "Mineral tint eyewear",
		Description: "UV400 polarized lenses set in sculpted acetate frames. Sharp silhouette designed for bright noon light.",
		Price:       155,
		Category:    model.CategoryAccessories,
		Accent:      "#8b7355",
		HeroImage:   "https://images.unsplash.com/photo-1511499767150-a48a237f0083?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1525547719571-a2d4ac8945e2?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1511920170033-f8396924c348?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  9,
		Rating: 4.5,
	},
	{
		Slug:        "loam-knit",
		Name:        "LOAM.KNIT",
		Tagline:     "Textured heavyweight crew",
		Description: "Dense organic cotton knit with ribbed architecture and dropped shoulder. Warm hand-feel with minimal lint.",
		Price:       110,
		Category:    model.CategoryEssentials,
		Accent:      "#a9896b",
		HeroImage:   "https://images.unsplash.com/photo-1483985988355-763728e1935b?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1434389677669-e08b4cac3105?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1445205170230-053b83016050?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  28,
		Rating: 4.6,
	},
	{
		Slug:        "basalt-pack",
		Name:        "BASALT.PACK",
		Tagline:     "Commuter roll-top",
		Description: "Abrasion-resistant body with welded seams and quick-release top closure. Built for daily laptop and camera carry.",
		Price:       135,
		Category:    model.CategoryBags,
		Accent:      "#5c6b52",
		HeroImage:   "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1595341888016-a392ef81b7de?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1483982258113-b72862e6cff6?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  14,
		Rating: 4.8,
	},
	{
		Slug:        "spruce-parka",
		Name:        "SPRUCE.PARKA",
		Tagline:     "Longline weather shell",
		Description: "Extended hem and seam-sealed hood with matte hardware. A functional silhouette for cold rain and urban wind.",
		Price:       230,
		Category:    model.CategoryOuterwear,
		Accent:      "#66754f",
		HeroImage:   "https://images.unsplash.com/photo-1521223890158-f9f7c3d5d504?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1542272604-787c3835535d?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1485462537746-965f33f7f6a7?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  7,
		Rating: 4.9,
	},
	{
		Slug:        "ochre-socks",
		Name:        "OCHRE.SOCKS",
		Tagline:     "Merino trail pair",
		Description: "Cushioned heel, ventilated toe box, and anti-slip arch support. Designed for long walks and all-day boots.",
		Price:       28,
		Category:    model.CategoryEssentials,
		Accent:      "#c69d5a",
		HeroImage:   "https://images.unsplash.com/photo-1586350977771-b3b0abd50c82?auto=format&fit=crop&q=80&w=1200",
		Gallery: pq.StringArray{
			"https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?auto=format&fit=crop&q=80&w=1200",
			"https://images.unsplash.com/photo-1503341455253-b2e723bb3dbb?auto=format&fit=crop&q=80&w=1200",
		},
		Stock:  41,
		Rating: 4.4,
	},
}

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", slog.Any("err", err))
		os.Exit(1)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Error("db connect", slog.Any("err", err))
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("migrate", slog.Any("err", err))
		os.Exit(1)
	}

	products := infraRepo.NewProductGormRepository(gormDB)
	ctx := context.Background()
	for _, p := range seedProducts {
		if err := products.UpsertBySlug(ctx, p); err != nil {
			log.Error("seed product", slog.String("slug", p.Slug), slog.Any("err", err))
			os.Exit(1)
		}
	}

	log.Info("seeded products", slog.Int("count", len(seedProducts)))
}
