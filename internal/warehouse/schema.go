package warehouse

// DDL shared by both dialects. Column types stay on the common subset
// (INTEGER/BIGINT/REAL/TEXT/DATE) so the same statements run on Postgres
// and MySQL.

func GetDimMovieSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS dim_movie (
			movie_id INTEGER PRIMARY KEY,
			title TEXT,
			genres TEXT
		);
	`
}

func GetDimUserSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS dim_user (
			user_id INTEGER PRIMARY KEY
		);
	`
}

func GetFactRatingSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS fact_rating (
			user_id INTEGER,
			movie_id INTEGER,
			rating REAL,
			rating_ts BIGINT,
			rating_date DATE,
			PRIMARY KEY (user_id, movie_id, rating_ts)
		);
	`
}

/*
MongoDB staging document structure (raw store, not this package):

ratings_raw: {
  _id: <objectid>,
  userId: <int>,
  movieId: <int>,
  rating: <number>,
  timestamp: <int, unix seconds>
}

movies_raw: {
  _id: <objectid>,
  movieId: <int>,
  title: <string>,
  genres: <string, pipe-delimited>
}
*/
