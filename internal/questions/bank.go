package questions

import "quiz-room-service/internal/domain"

// DefaultBank is the built-in question bank used when no database-backed
// bank is configured.
func DefaultBank() map[domain.Difficulty][]domain.Question {
	return map[domain.Difficulty][]domain.Question{
		domain.DifficultyEasy: {
			{Text: "What is the capital of France?", Options: []string{"London", "Berlin", "Paris", "Madrid"}, CorrectOption: "Paris"},
			{Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Saturn"}, CorrectOption: "Mars"},
			{Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: "4"},
			{Text: "What is the largest ocean on Earth?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectOption: "Pacific"},
			{Text: "How many days are in a leap year?", Options: []string{"365", "366", "367", "364"}, CorrectOption: "366"},
			{Text: "How many continents are there?", Options: []string{"Five", "Six", "Seven", "Eight"}, CorrectOption: "Seven"},
			{Text: "Which animal is known as man's best friend?", Options: []string{"Cat", "Dog", "Horse", "Rabbit"}, CorrectOption: "Dog"},
		},
		domain.DifficultyMedium: {
			{Text: "Which element has the chemical symbol 'O'?", Options: []string{"Gold", "Oxygen", "Silver", "Iron"}, CorrectOption: "Oxygen"},
			{Text: "In which year did World War II end?", Options: []string{"1944", "1945", "1946", "1947"}, CorrectOption: "1945"},
			{Text: "What is the square root of 64?", Options: []string{"6", "7", "8", "9"}, CorrectOption: "8"},
			{Text: "Which organ in the human body produces insulin?", Options: []string{"Liver", "Kidney", "Pancreas", "Heart"}, CorrectOption: "Pancreas"},
			{Text: "What is the currency of Japan?", Options: []string{"Yuan", "Won", "Yen", "Rupee"}, CorrectOption: "Yen"},
			{Text: "Which gas do plants absorb from the atmosphere?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, CorrectOption: "Carbon dioxide"},
			{Text: "Who painted the Mona Lisa?", Options: []string{"Michelangelo", "Raphael", "Leonardo da Vinci", "Donatello"}, CorrectOption: "Leonardo da Vinci"},
		},
		domain.DifficultyHard: {
			{Text: "What is the smallest prime number?", Options: []string{"0", "1", "2", "3"}, CorrectOption: "2"},
			{Text: "Which scientist developed the theory of relativity?", Options: []string{"Newton", "Einstein", "Galileo", "Darwin"}, CorrectOption: "Einstein"},
			{Text: "What is the chemical formula for water?", Options: []string{"H2O", "CO2", "NaCl", "CH4"}, CorrectOption: "H2O"},
			{Text: "In which continent is the Sahara Desert located?", Options: []string{"Asia", "Australia", "Africa", "South America"}, CorrectOption: "Africa"},
			{Text: "What is the hardest natural substance on Earth?", Options: []string{"Gold", "Iron", "Diamond", "Platinum"}, CorrectOption: "Diamond"},
			{Text: "Which planet has the most moons?", Options: []string{"Jupiter", "Saturn", "Uranus", "Neptune"}, CorrectOption: "Saturn"},
			{Text: "What is the longest river in the world?", Options: []string{"Amazon", "Nile", "Yangtze", "Mississippi"}, CorrectOption: "Nile"},
		},
	}
}
