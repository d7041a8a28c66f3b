// Package all registers every acquisition source with the fetcher registry.
package all

import (
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/bet365"
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/betsson"
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/bwin"
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/fonbet"
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/novibet"
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/pamestoixima"
	_ "github.com/Vodeneev/surebet/internal/fetcher/sources/stoiximan"
)
