package catalog

import "github.com/angelmondragon/cinepass/pkg/money"

// Default returns the storefront's bundled catalog.
func Default() *Static {
	return NewStatic(defaultMovies)
}

var defaultMovies = []Movie{
	{ID: 1, Title: "Vingadores: Ultimato", Genre: "Ação", Duration: "181 min", Rating: 8.4, Poster: "assets/images/ultimato.svg", Showtimes: []string{"14:00", "17:30", "21:00"}, Price: money.MustParse("30.00"), InTheater: true},
	{ID: 2, Title: "Interestelar", Genre: "Ficção Científica", Duration: "169 min", Rating: 8.6, Poster: "assets/images/interestelar.svg", Showtimes: []string{"15:30", "19:00", "22:30"}, Price: money.MustParse("22.00"), InTheater: true},
	{ID: 3, Title: "Pantera Negra", Genre: "Ação", Duration: "134 min", Rating: 7.3, Poster: "assets/images/pantera.svg", Showtimes: []string{"16:00", "19:30", "22:45"}, Price: money.MustParse("24.00"), InTheater: true},
	{ID: 4, Title: "Matrix Resurrections", Genre: "Ficção Científica", Duration: "148 min", Rating: 5.7, Poster: "assets/images/matrix.svg", Showtimes: []string{"14:30", "18:00", "21:30"}, Price: money.MustParse("26.00"), InTheater: true},
	{ID: 5, Title: "Duna", Genre: "Ficção Científica", Duration: "155 min", Rating: 8.0, Poster: "assets/images/duna.svg", Showtimes: []string{"15:00", "18:30", "22:00"}, Price: money.MustParse("28.00"), InTheater: true},
	{ID: 6, Title: "Homem-Aranha: Sem Volta Para Casa", Genre: "Ação", Duration: "148 min", Rating: 8.2, Poster: "assets/images/homem_aranha.svg", Showtimes: []string{"14:15", "17:45", "21:15"}, Price: money.MustParse("30.00"), InTheater: true},
	{ID: 7, Title: "Top Gun: Maverick", Genre: "Ação", Duration: "130 min", Rating: 8.3, Poster: "assets/images/top_gun.svg", Showtimes: []string{"14:45", "17:15", "20:00"}, Price: money.MustParse("27.00"), InTheater: true},
	{ID: 8, Title: "Doutor Estranho no Multiverso da Loucura", Genre: "Ação", Duration: "126 min", Rating: 6.9, Poster: "assets/images/doutor_estranho.svg", Showtimes: []string{"15:15", "18:45", "22:15"}, Price: money.MustParse("26.00"), InTheater: true},

	// upcoming releases carry neither price nor showtimes
	{ID: 101, Title: "Avatar: O Caminho da Água", Genre: "Ficção Científica", Duration: "192 min", Poster: "assets/images/avatar.svg"},
	{ID: 102, Title: "Thor: Love and Thunder 2", Genre: "Ação", Duration: "125 min", Poster: "assets/images/thor.svg"},
	{ID: 103, Title: "Guardiões da Galáxia Vol. 4", Genre: "Ação", Duration: "140 min", Poster: "assets/images/galaxia.svg"},
}
