package server

import "github.com/desertthunder/myflix/internal/models"

// SeedMovies returns the default development catalog.
func SeedMovies() []models.Movie {
	return []models.Movie{
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f901",
			Title:       "Anora",
			Description: "A young sex worker from Brooklyn impulsively marries the son of a Russian oligarch.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/7MrgIUeq0DD2iF7GR6wqJfYZNeC.jpg",
			Director:    models.Director{Name: "Sean Baker", BirthYear: 1971},
			Genre:       models.Genre{Name: "Drama", Description: "Stories driven by character and conflict."},
			Rating:      "R",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f902",
			Title:       "The Brutalist",
			Description: "A visionary architect flees post-war Europe to rebuild his life in America.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/vP7Yd6couiAaw9jgMd5cjMRj3hQ.jpg",
			Director:    models.Director{Name: "Brady Corbet", BirthYear: 1988},
			Genre:       models.Genre{Name: "Drama", Description: "Stories driven by character and conflict."},
			Rating:      "R",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f903",
			Title:       "Conclave",
			Description: "Cardinal Lawrence oversees the secretive election of a new pope.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/m5x8D0bZ3eKqIVWZ5y7TnZ2oTVg.jpg",
			Director:    models.Director{Name: "Edward Berger", BirthYear: 1970},
			Genre:       models.Genre{Name: "Thriller", Description: "Suspense, tension and high stakes."},
			Rating:      "PG",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f904",
			Title:       "Dune: Part Two",
			Description: "Paul Atreides unites with the Fremen while on a path of revenge.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/1pdfLvkbY9ohJlCjQH2CZjjYVvJ.jpg",
			Director:    models.Director{Name: "Denis Villeneuve", BirthYear: 1967},
			Genre:       models.Genre{Name: "Science Fiction", Description: "Speculative futures and other worlds."},
			Rating:      "PG-13",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f905",
			Title:       "Flow",
			Description: "A solitary cat shelters on a boat with other animals after a great flood.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/imKSymKBK7o73sajciEmndJoVkR.jpg",
			Director:    models.Director{Name: "Gints Zilbalodis", BirthYear: 1994},
			Genre:       models.Genre{Name: "Animation", Description: "Stories told through animation."},
			Rating:      "PG",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f906",
			Title:       "I'm Still Here",
			Description: "A mother reinvents herself after her husband is taken by the military dictatorship in Brazil.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/gZnsGn4xZgWXktiVYGpjz7Vkdw.jpg",
			Director:    models.Director{Name: "Walter Salles", BirthYear: 1956},
			Genre:       models.Genre{Name: "Drama", Description: "Stories driven by character and conflict."},
			Rating:      "PG-13",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f907",
			Title:       "Nickel Boys",
			Description: "Two Black teenagers survive a brutal reform school in 1960s Florida.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/vHBp3E4wtgMYj5mGBLmzRHrvJ0w.jpg",
			Director:    models.Director{Name: "RaMell Ross", BirthYear: 1982},
			Genre:       models.Genre{Name: "Drama", Description: "Stories driven by character and conflict."},
			Rating:      "PG-13",
		},
		{
			ID:          "67a1f0c2e4b0a1c3d5e7f908",
			Title:       "Wicked",
			Description: "Elphaba and Glinda forge an unlikely friendship in the Land of Oz.",
			ImageURL:    "https://image.tmdb.org/t/p/w500/xDGbZ0JJ3mYaGKy4Nzd9Kph6M9L.jpg",
			Director:    models.Director{Name: "Jon M. Chu", BirthYear: 1979},
			Genre:       models.Genre{Name: "Musical", Description: "Stories told through song and dance."},
			Rating:      "PG",
		},
	}
}
