// main.go -- This file is part of the hartree project.
//
//	hartree is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
// ------------------------------------------------

// Command run sweeps the Hubbard-Kanamori interaction strength for a
// 1D tight-binding chain, solves the mean field at each point and
// records chemical potential, mean field and charge susceptibility to
// a sqlite database plus summary plots.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"hartree"
	"hartree/interaction"
	"hartree/kspace"
)

var (
	runDir = flag.String("d", filepath.Join("runs", "hartree"), "run directory")
	nk     = flag.Int("nk", 64, "momentum mesh size")
	norb   = flag.Int("norb", 2, "orbitals (including spin)")
	t      = flag.Float64("t", -1.0, "nearest-neighbour hopping")
	beta   = flag.Float64("beta", 10.0, "inverse temperature")
	ntot   = flag.Float64("n", 1.0, "target total density")
	jHund  = flag.Float64("j", 0.0, "Hund coupling")
	uMin   = flag.Float64("umin", 0.0, "smallest interaction")
	uMax   = flag.Float64("umax", 4.0, "largest interaction")
	nu     = flag.Int("nu", 17, "number of interaction grid points")
)

var (
	WarningLogger *log.Logger
	InfoLogger    *log.Logger
	ErrorLogger   *log.Logger
	OutputLogger  *log.Logger
)

func initLog(fname string) error {
	file, err := os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "")
	}

	InfoLogger = log.New(file, "INFO: ", log.Ldate|log.Ltime)
	WarningLogger = log.New(file, "WARNING: ", log.Ldate|log.Ltime)
	ErrorLogger = log.New(file, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	OutputLogger = log.New(file, "", 0)
	return nil
}

type sweepPoint struct {
	u          float64
	mu         float64
	m0         float64
	density    float64
	iterations int
	residual   float64
	converged  bool
	chi0       float64
	chi        float64
	trajectory [][]float64
}

func openDB(dir string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", filepath.Join(dir, "results.db")))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	const schema = `CREATE TABLE IF NOT EXISTS sweep (
		u REAL, j REAL, beta REAL, ntot REAL,
		mu REAL, m0 REAL, density REAL,
		iterations INTEGER, residual REAL, converged INTEGER,
		chi0 REAL, chi REAL,
		PRIMARY KEY (u, j, beta, ntot)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return db, nil
}

func alreadyDone(db *sql.DB, u float64) (bool, error) {
	var n int
	row := db.QueryRow(`SELECT COUNT(*) FROM sweep WHERE u=? AND j=? AND beta=? AND ntot=?`,
		u, *jHund, *beta, *ntot)
	if err := row.Scan(&n); err != nil {
		return false, errors.Wrap(err, "")
	}
	return n > 0, nil
}

func record(db *sql.DB, p sweepPoint) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO sweep
		(u, j, beta, ntot, mu, m0, density, iterations, residual, converged, chi0, chi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.u, *jHund, *beta, *ntot, p.mu, p.m0, p.density,
		p.iterations, p.residual, p.converged, p.chi0, p.chi)
	return errors.Wrap(err, "")
}

func solvePoint(ek *kspace.Dispersion, u float64) (sweepPoint, error) {
	hint, err := interaction.Kanamori(*norb, u, *jHund)
	if err != nil {
		return sweepPoint{}, err
	}
	solver, err := hartree.New(ek, hint)
	if err != nil {
		return sweepPoint{}, err
	}

	res, err := solver.SolveIter(*beta, *ntot)
	if err != nil {
		return sweepPoint{}, errors.Wrapf(err, "U=%v", u)
	}
	if !res.Converged {
		WarningLogger.Println("MF not converged after", res.Iterations,
			"iterations at U =", u, ", residual =", res.Residual)
	}
	OutputLogger.Println(solver.String())

	resp, err := hartree.NewHartreeResponse(solver)
	if err != nil {
		return sweepPoint{}, errors.Wrapf(err, "U=%v", u)
	}
	// Charge probe: total density operator.
	n := mat.NewDense(*norb, *norb, nil)
	for i := 0; i < *norb; i++ {
		n.Set(i, i, 1)
	}
	chi0, err := resp.BareResponse(n, n)
	if err != nil {
		return sweepPoint{}, err
	}
	chi, err := resp.Response(n, n)
	if err != nil {
		return sweepPoint{}, err
	}

	return sweepPoint{
		u:          u,
		mu:         solver.Mu(),
		m0:         solver.MeanField()[0],
		density:    solver.Density(),
		iterations: res.Iterations,
		residual:   res.Residual,
		converged:  res.Converged,
		chi0:       chi0,
		chi:        chi,
		trajectory: res.Trajectory,
	}, nil
}

func plotSweep(dir string, points []sweepPoint) error {
	p := plot.New()
	p.Title.Text = "RPA charge susceptibility"
	p.X.Label.Text = "U"
	p.Y.Label.Text = "chi"

	bare := make(plotter.XYs, len(points))
	rpa := make(plotter.XYs, len(points))
	for i, pt := range points {
		bare[i] = plotter.XY{X: pt.u, Y: pt.chi0}
		rpa[i] = plotter.XY{X: pt.u, Y: pt.chi}
	}
	lBare, err := plotter.NewLine(bare)
	if err != nil {
		return errors.Wrap(err, "")
	}
	lRPA, err := plotter.NewLine(rpa)
	if err != nil {
		return errors.Wrap(err, "")
	}
	lRPA.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(lBare, lRPA)
	p.Legend.Add("chi0", lBare)
	p.Legend.Add("chi RPA", lRPA)

	err = p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, "chi.png"))
	return errors.Wrap(err, "")
}

func plotConvergence(dir string, p sweepPoint) error {
	if len(p.trajectory) < 2 {
		return nil
	}
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("SCF convergence, U = %.2f", p.u)
	pl.X.Label.Text = "iteration"
	pl.Y.Label.Text = "relative residual"
	pl.Y.Scale = plot.LogScale{}
	pl.Y.Tick.Marker = plot.LogTicks{}

	pts := make(plotter.XYs, 0, len(p.trajectory)-1)
	for i := 1; i < len(p.trajectory); i++ {
		prev, cur := p.trajectory[i-1], p.trajectory[i]
		denom := floats.Norm(prev, 2)
		if denom == 0 {
			denom = 1
		}
		r := floats.Distance(prev, cur, 2) / denom
		if r == 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i), Y: r})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "")
	}
	pl.Add(line)

	err = pl.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(dir, "convergence.png"))
	return errors.Wrap(err, "")
}

func main() {
	flag.Parse()

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
	fmt.Println("hartree sweep done.")
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	if err := initLog(filepath.Join(*runDir, "run.log")); err != nil {
		return err
	}
	InfoLogger.Println("Starting hartree sweep...")
	OutputLogger.Println("nk =", *nk, "norb =", *norb, "t =", *t,
		"beta =", *beta, "N_tot =", *ntot, "J =", *jHund)

	ek, err := kspace.TightBinding1D(*nk, *norb, *t)
	if err != nil {
		return err
	}

	db, err := openDB(*runDir)
	if err != nil {
		return err
	}
	defer db.Close()

	points := make([]sweepPoint, 0, *nu)
	for i := 0; i < *nu; i++ {
		u := *uMin
		if *nu > 1 {
			u += (*uMax - *uMin) * float64(i) / float64(*nu-1)
		}

		done, err := alreadyDone(db, u)
		if err != nil {
			return err
		}
		if done {
			InfoLogger.Println("Skipping U =", u, "(already recorded)")
			continue
		}

		p, err := solvePoint(ek, u)
		if err != nil {
			ErrorLogger.Println(err)
			return err
		}
		if err := record(db, p); err != nil {
			return err
		}
		points = append(points, p)
		log.Printf("U=%.3f mu=%.6f n=%.6f chi=%.6f iters=%d", u, p.mu, p.density, p.chi, p.iterations)
	}

	if len(points) > 0 {
		if err := plotSweep(*runDir, points); err != nil {
			return err
		}
		if err := plotConvergence(*runDir, points[len(points)-1]); err != nil {
			return err
		}
	}
	InfoLogger.Println("Exiting hartree sweep...")
	return nil
}
