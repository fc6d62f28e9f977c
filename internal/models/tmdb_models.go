package models

// TMDBFindResponse is the answer of TMDB's /find endpoint when looking
// up an item by external (IMDb) id.
type TMDBFindResponse struct {
	MovieResults []TMDBMovieResult `json:"movie_results"`
	TVResults    []TMDBTVResult    `json:"tv_results"`
}

type TMDBMovieResult struct {
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	ReleaseDate   string `json:"release_date"`
}

type TMDBTVResult struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name"`
	FirstAirDate string `json:"first_air_date"`
}
