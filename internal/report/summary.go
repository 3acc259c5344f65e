package report

import (
	"sort"
	"time"

	"classlog/internal/school"
)

// TopStudentsLimit caps the per-student breakdown.
const TopStudentsLimit = 5

// Dataset is the full, unfiltered input of a report.
type Dataset struct {
	Students []school.Student
	Subjects []school.Subject
	Sessions []school.ClassSession
	Absences []school.Absence
}

// Summary holds the headline statistics of a period.
type Summary struct {
	TotalClasses                  int     `json:"total_classes"`
	TotalAbsences                 int     `json:"total_absences"`
	JustifiedAbsences             int     `json:"justified_absences"`
	UnjustifiedAbsences           int     `json:"unjustified_absences"`
	TotalAttendances              int     `json:"total_attendances"`
	TotalPossibleAttendances      int     `json:"total_possible_attendances"`
	AttendanceRate                float64 `json:"attendance_rate"`
	SubjectsWithClasses           int     `json:"subjects_with_classes"`
	AverageAbsencesPerStudent     float64 `json:"average_absences_per_student"`
	StudentsWithPerfectAttendance int     `json:"students_with_perfect_attendance"`
}

// SubjectStat is the per-subject breakdown.
type SubjectStat struct {
	SubjectID      string  `json:"subject_id"`
	Name           string  `json:"name"`
	Teacher        string  `json:"teacher"`
	Classes        int     `json:"classes"`
	Absences       int     `json:"absences"`
	Attendances    int     `json:"attendances"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// StudentStat is one row of the top-absences breakdown.
type StudentStat struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Absences  int    `json:"absences"`
	Justified int    `json:"justified"`
}

// Report is a filtered period with its derived aggregates.
type Report struct {
	Type        Type                  `json:"type"`
	Range       Range                 `json:"range"`
	GeneratedAt time.Time             `json:"generated_at"`
	Classes     []school.ClassSession `json:"classes"`
	Absences    []school.Absence      `json:"absences"`
	Summary     Summary               `json:"summary"`
	Subjects    []SubjectStat         `json:"subjects"`
	TopStudents []StudentStat         `json:"top_students"`
}

// Build filters the dataset to the range and computes every aggregate.
// Student counts used as denominators are unfiltered.
func Build(t Type, rng Range, data Dataset) Report {
	classes := make([]school.ClassSession, 0)
	for _, cs := range data.Sessions {
		if rng.Contains(cs.Date) {
			classes = append(classes, cs)
		}
	}
	absences := make([]school.Absence, 0)
	for _, ab := range data.Absences {
		if rng.Contains(ab.Date) {
			absences = append(absences, ab)
		}
	}

	studentCount := len(data.Students)
	var sum Summary
	sum.TotalClasses = len(classes)
	sum.TotalAbsences = len(absences)
	subjectNames := make(map[string]struct{})
	for _, cs := range classes {
		sum.TotalAttendances += cs.AttendanceCount()
		subjectNames[cs.SubjectName] = struct{}{}
	}
	sum.SubjectsWithClasses = len(subjectNames)
	absencesByStudent := make(map[string]int)
	justifiedByStudent := make(map[string]int)
	for _, ab := range absences {
		absencesByStudent[ab.StudentID]++
		if ab.Justified {
			sum.JustifiedAbsences++
			justifiedByStudent[ab.StudentID]++
		}
	}
	sum.UnjustifiedAbsences = sum.TotalAbsences - sum.JustifiedAbsences
	sum.TotalPossibleAttendances = sum.TotalClasses * studentCount
	sum.AttendanceRate = rate(sum.TotalAttendances, sum.TotalPossibleAttendances)
	if studentCount > 0 {
		sum.AverageAbsencesPerStudent = float64(sum.TotalAbsences) / float64(studentCount)
	}
	for _, st := range data.Students {
		if absencesByStudent[st.ID] == 0 {
			sum.StudentsWithPerfectAttendance++
		}
	}

	subjects := make([]SubjectStat, 0, len(data.Subjects))
	for _, su := range data.Subjects {
		stat := SubjectStat{SubjectID: su.ID, Name: su.Name, Teacher: su.Teacher}
		for _, cs := range classes {
			if cs.SubjectID == su.ID {
				stat.Classes++
				stat.Attendances += cs.AttendanceCount()
			}
		}
		for _, ab := range absences {
			if ab.SubjectID == su.ID {
				stat.Absences++
			}
		}
		stat.AttendanceRate = rate(stat.Attendances, stat.Classes*studentCount)
		subjects = append(subjects, stat)
	}

	students := make([]StudentStat, 0, len(data.Students))
	for _, st := range data.Students {
		students = append(students, StudentStat{
			StudentID: st.ID,
			Name:      st.Name,
			Absences:  absencesByStudent[st.ID],
			Justified: justifiedByStudent[st.ID],
		})
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].Absences > students[j].Absences })
	if len(students) > TopStudentsLimit {
		students = students[:TopStudentsLimit]
	}

	return Report{
		Type:        t,
		Range:       rng,
		Classes:     classes,
		Absences:    absences,
		Summary:     sum,
		Subjects:    subjects,
		TopStudents: students,
	}
}

// rate is part/whole as a percentage, 0 when whole is 0.
func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
